package controllers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/landertag/mailflow/internal/engine"
	"github.com/landertag/mailflow/internal/models"
)

// SchedulerController exposes the cron-invoked entry point that drains due
// schedule entries.
type SchedulerController struct {
	*AuthController
	Processor *engine.Processor
	BatchSize int
}

func NewSchedulerController(processor *engine.Processor, auth *AuthController, batchSize int) *SchedulerController {
	return &SchedulerController{AuthController: auth, Processor: processor, BatchSize: batchSize}
}

func (c *SchedulerController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/workflows/process-scheduled", c.RequireCronSecret(c.handleProcessScheduled))
}

// handleProcessScheduled accepts both GET and POST; cron providers differ on
// which they emit.
func (c *SchedulerController) handleProcessScheduled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	processed, err := c.Processor.ProcessDue(r.Context(), c.BatchSize)
	if err != nil {
		slog.Error("Failed to process scheduled emails", "error", err)
		http.Error(w, "failed to process scheduled emails", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.ProcessScheduledResponse{
		Success:   true,
		Processed: processed,
		Message:   fmt.Sprintf("Successfully processed %d scheduled emails", processed),
	})
}
