package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/landertag/mailflow/internal/catalog"
	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/internal/engine"
	"github.com/landertag/mailflow/internal/models"
)

// WorkflowsController exposes the workflow trigger surface: start, stop,
// trigger-by-event and the operator view of one instance.
type WorkflowsController struct {
	*AuthController
	Engine   *engine.Engine
	validate *validator.Validate
}

func NewWorkflowsController(eng *engine.Engine, auth *AuthController) *WorkflowsController {
	return &WorkflowsController{
		AuthController: auth,
		Engine:         eng,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *WorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/workflows/start", c.RequireAPIKey(c.handleStartWorkflow))
	mux.HandleFunc("/api/workflows/stop", c.RequireAPIKey(c.handleStopWorkflow))
	mux.HandleFunc("/api/events", c.RequireAPIKey(c.handleTriggerEvent))
	mux.HandleFunc("/api/workflows/{id}", c.RequireAPIKey(c.handleGetInstance))
	mux.HandleFunc("/api/users/{id}/workflows", c.RequireAPIKey(c.handleListUserWorkflows))
}

func (c *WorkflowsController) handleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.StartWorkflowRequest
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

	instanceID, err := c.Engine.StartWorkflow(r.Context(), req.WorkflowID, req.UserEmail, req.UserID, req.Metadata)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowNotFound) || errors.Is(err, engine.ErrWorkflowDisabled) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to start workflow", "workflow_id", req.WorkflowID, "error", err)
		http.Error(w, "failed to start workflow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.StartWorkflowResponse{
		Success:    true,
		InstanceID: instanceID,
		Message:    "Workflow " + req.WorkflowID + " started successfully",
	})
}

func (c *WorkflowsController) handleStopWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.StopWorkflowRequest
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

	if err := c.Engine.StopWorkflow(r.Context(), req.InstanceID); err != nil {
		if errors.Is(err, engine.ErrInstanceNotFound) {
			http.Error(w, "workflow instance not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to stop workflow", "instance_id", req.InstanceID, "error", err)
		http.Error(w, "failed to stop workflow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Workflow stopped successfully"})
}

func (c *WorkflowsController) handleTriggerEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.TriggerEventRequest
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

	ids, err := c.Engine.StartForTrigger(r.Context(), catalog.Trigger(req.Trigger), req.UserEmail, req.UserID, req.Metadata)
	if err != nil {
		slog.Error("Failed to start workflows for trigger", "trigger", req.Trigger, "error", err)
		http.Error(w, "failed to start workflows", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(models.TriggerEventResponse{Success: true, InstanceIDs: ids})
}

func (c *WorkflowsController) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	detail, err := c.Engine.GetInstance(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrInstanceNotFound) {
			http.Error(w, "workflow instance not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load workflow instance", "instance_id", id, "error", err)
		http.Error(w, "failed to load workflow instance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapInstanceDetail(detail))
}

func (c *WorkflowsController) handleListUserWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.PathValue("id")
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	instances, err := c.Engine.ListActiveForUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list workflows for user", "user_id", userID, "error", err)
		http.Error(w, "failed to list workflows", http.StatusInternalServerError)
		return
	}

	resp := models.UserWorkflowsResponse{Instances: []models.APIInstance{}}
	for i := range instances {
		resp.Instances = append(resp.Instances, mapInstance(&instances[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func mapInstanceDetail(detail *engine.InstanceDetail) models.APIInstanceDetail {
	out := models.APIInstanceDetail{
		Instance:  mapInstance(detail.Instance),
		Schedules: []models.APIScheduleEntry{},
		EmailLog:  []models.APIEmailLogEntry{},
	}
	for _, s := range detail.Schedules {
		entry := models.APIScheduleEntry{
			ID:           s.ID,
			StepIndex:    s.StepIndex,
			ScheduledFor: s.ScheduledFor,
			Status:       s.Status,
		}
		if s.SentAt.Valid {
			t := s.SentAt.Time
			entry.SentAt = &t
		}
		out.Schedules = append(out.Schedules, entry)
	}
	for _, l := range detail.EmailLog {
		out.EmailLog = append(out.EmailLog, models.APIEmailLogEntry{
			StepID:            l.StepID.String,
			Email:             l.Email,
			Subject:           l.Subject,
			Status:            l.Status,
			Provider:          l.Provider.String,
			ProviderMessageID: l.ProviderMessageID.String,
			ErrorMessage:      l.ErrorMessage.String,
			SentAt:            l.SentAt,
		})
	}
	return out
}

func mapInstance(inst *domain.WorkflowInstance) models.APIInstance {
	out := models.APIInstance{
		ID:          inst.ID,
		WorkflowID:  inst.WorkflowID,
		UserID:      inst.UserID,
		UserEmail:   inst.UserEmail,
		Status:      inst.Status,
		CurrentStep: inst.CurrentStep,
		StartedAt:   inst.StartedAt,
	}
	if inst.Metadata.Valid && inst.Metadata.String != "" {
		_ = json.Unmarshal([]byte(inst.Metadata.String), &out.Metadata)
	}
	if inst.LastEmailSentAt.Valid {
		t := inst.LastEmailSentAt.Time
		out.LastEmailSentAt = &t
	}
	if inst.CompletedAt.Valid {
		t := inst.CompletedAt.Time
		out.CompletedAt = &t
	}
	return out
}
