package main

import (
	"log/slog"

	"github.com/landertag/mailflow/pkg/mailflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	mailflow.SetupLogger()

	if err := mailflow.Start(nil); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
