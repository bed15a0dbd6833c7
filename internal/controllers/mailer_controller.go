package controllers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/internal/email"
	"github.com/landertag/mailflow/internal/engine"
	"github.com/landertag/mailflow/internal/models"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

// MailerController sends one-off transactional emails that live outside any
// workflow, currently just the secure download password. Sends are logged to
// the same email log as workflow mail.
type MailerController struct {
	*AuthController
	Templates engine.Renderer
	Sender    email.Sender
	Logs      engine.EmailLogRepo
	Clock     core.Clock
	validate  *validator.Validate
}

func NewMailerController(templates engine.Renderer, sender email.Sender, logs engine.EmailLogRepo, clock core.Clock, auth *AuthController) *MailerController {
	return &MailerController{
		AuthController: auth,
		Templates:      templates,
		Sender:         sender,
		Logs:           logs,
		Clock:          clock,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *MailerController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/send-download-password", c.RequireAPIKey(c.handleSendDownloadPassword))
}

func (c *MailerController) handleSendDownloadPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.SendDownloadPasswordRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := c.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subject := "Your Secure Download Password"
	if req.IsSecurePackage {
		subject = "Secure Package Access"
	}

	html, text, err := c.Templates.Render("download_password", map[string]any{
		"password":        req.Password,
		"siteName":        req.SiteName,
		"slug":            req.Slug,
		"isSecurePackage": req.IsSecurePackage,
	})
	if err != nil {
		slog.Error("Failed to render download password email", "error", err)
		http.Error(w, "failed to render email", http.StatusInternalServerError)
		return
	}

	entry := &domain.EmailLogEntry{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		Email:   req.Email,
		Subject: subject,
		SentAt:  c.Clock.Now().UTC(),
	}

	result, err := c.Sender.Send(r.Context(), email.Message{To: req.Email, Subject: subject, HTML: html, Text: text})
	if err != nil {
		entry.Status = domain.EmailLogStatusFailed
		entry.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if logErr := c.Logs.Save(entry); logErr != nil {
			slog.Error("Failed to append email log entry", "error", logErr)
		}
		slog.Error("Failed to send download password email", "to", req.Email, "error", err)
		http.Error(w, "failed to send email", http.StatusInternalServerError)
		return
	}

	entry.Status = domain.EmailLogStatusSent
	entry.Provider = sql.NullString{String: result.Provider, Valid: true}
	entry.ProviderMessageID = sql.NullString{String: result.MessageID, Valid: result.MessageID != ""}
	if logErr := c.Logs.Save(entry); logErr != nil {
		slog.Error("Failed to append email log entry", "error", logErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "messageId": result.MessageID})
}
