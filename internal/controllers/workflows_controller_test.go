package controllers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/landertag/mailflow/internal/catalog"
	"github.com/landertag/mailflow/internal/config"
	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/internal/email"
	"github.com/landertag/mailflow/internal/engine"
	"github.com/landertag/mailflow/internal/models"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

// MockInstanceRepo implements engine.InstanceRepo for testing
type MockInstanceRepo struct {
	SaveFunc             func(inst *domain.WorkflowInstance) error
	FindByIDFunc         func(id string) (*domain.WorkflowInstance, error)
	AdvanceStepFunc      func(id string, nextStep int, sentAt sql.NullTime) error
	MarkCompletedFunc    func(id string) error
	MarkCancelledFunc    func(id string) (bool, error)
	FindActiveByUserFunc func(userID string) (*[]domain.WorkflowInstance, error)
}

func (m *MockInstanceRepo) Save(inst *domain.WorkflowInstance) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(inst)
	}
	return nil
}
func (m *MockInstanceRepo) FindByID(id string) (*domain.WorkflowInstance, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, sql.ErrNoRows
}
func (m *MockInstanceRepo) AdvanceStep(id string, nextStep int, sentAt sql.NullTime) error {
	if m.AdvanceStepFunc != nil {
		return m.AdvanceStepFunc(id, nextStep, sentAt)
	}
	return nil
}
func (m *MockInstanceRepo) MarkCompleted(id string) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(id)
	}
	return nil
}
func (m *MockInstanceRepo) MarkCancelled(id string) (bool, error) {
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(id)
	}
	return true, nil
}
func (m *MockInstanceRepo) FindActiveByUser(userID string) (*[]domain.WorkflowInstance, error) {
	if m.FindActiveByUserFunc != nil {
		return m.FindActiveByUserFunc(userID)
	}
	return &[]domain.WorkflowInstance{}, nil
}

// MockScheduleRepo implements engine.ScheduleRepo for testing
type MockScheduleRepo struct {
	SaveFunc                    func(e *domain.ScheduleEntry) error
	FindDueFunc                 func(limit int) (*[]domain.ScheduleEntry, error)
	ClaimFunc                   func(id string, modified time.Time) bool
	MarkSentFunc                func(id string) error
	CancelPendingByInstanceFunc func(instanceID string) (int64, error)
	HasPendingForStepFunc       func(instanceID string, stepIndex int) (bool, error)
	FindByInstanceFunc          func(instanceID string) (*[]domain.ScheduleEntry, error)
}

func (m *MockScheduleRepo) Save(e *domain.ScheduleEntry) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(e)
	}
	return nil
}
func (m *MockScheduleRepo) FindDue(limit int) (*[]domain.ScheduleEntry, error) {
	if m.FindDueFunc != nil {
		return m.FindDueFunc(limit)
	}
	return &[]domain.ScheduleEntry{}, nil
}
func (m *MockScheduleRepo) Claim(id string, modified time.Time) bool {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(id, modified)
	}
	return true
}
func (m *MockScheduleRepo) MarkSent(id string) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(id)
	}
	return nil
}
func (m *MockScheduleRepo) CancelPendingByInstance(instanceID string) (int64, error) {
	if m.CancelPendingByInstanceFunc != nil {
		return m.CancelPendingByInstanceFunc(instanceID)
	}
	return 0, nil
}
func (m *MockScheduleRepo) HasPendingForStep(instanceID string, stepIndex int) (bool, error) {
	if m.HasPendingForStepFunc != nil {
		return m.HasPendingForStepFunc(instanceID, stepIndex)
	}
	return false, nil
}
func (m *MockScheduleRepo) FindByInstance(instanceID string) (*[]domain.ScheduleEntry, error) {
	if m.FindByInstanceFunc != nil {
		return m.FindByInstanceFunc(instanceID)
	}
	return &[]domain.ScheduleEntry{}, nil
}

// MockEmailLogRepo implements engine.EmailLogRepo for testing
type MockEmailLogRepo struct {
	SaveFunc           func(e *domain.EmailLogEntry) error
	FindByInstanceFunc func(instanceID string) (*[]domain.EmailLogEntry, error)
}

func (m *MockEmailLogRepo) Save(e *domain.EmailLogEntry) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(e)
	}
	return nil
}
func (m *MockEmailLogRepo) FindByInstance(instanceID string) (*[]domain.EmailLogEntry, error) {
	if m.FindByInstanceFunc != nil {
		return m.FindByInstanceFunc(instanceID)
	}
	return &[]domain.EmailLogEntry{}, nil
}

type MockSender struct {
	SendFunc func(ctx context.Context, msg email.Message) (*email.Result, error)
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) (*email.Result, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return &email.Result{Provider: "mock", MessageID: "msg-1"}, nil
}

func bcryptHash(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing secret: %v", err)
	}
	return string(h)
}

func testAuth(t *testing.T) *AuthController {
	t.Helper()
	return NewAuthController(config.AuthConfig{
		APIKeyHash:     bcryptHash(t, "test-key"),
		CronSecretHash: bcryptHash(t, "cron-secret"),
	})
}

func testEngine(t *testing.T, instances engine.InstanceRepo, schedules engine.ScheduleRepo, logs engine.EmailLogRepo, sender email.Sender) *engine.Engine {
	t.Helper()
	cat, err := catalog.New([]catalog.WorkflowDefinition{
		{
			ID:      "onboarding",
			Trigger: catalog.TriggerUserSignup,
			Enabled: true,
			Steps: []catalog.StepDefinition{
				{ID: "welcome", Subject: "Welcome!", TemplateKey: "welcome", DelayHours: 24},
			},
		},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	templates := email.NewTemplates("https://app.example.com")
	return engine.New(cat, templates, sender, instances, schedules, logs, core.NewRealClock())
}

func testWorkflowsMux(t *testing.T, instances engine.InstanceRepo) *http.ServeMux {
	t.Helper()
	eng := testEngine(t, instances, &MockScheduleRepo{}, &MockEmailLogRepo{}, &MockSender{})
	mux := http.NewServeMux()
	NewWorkflowsController(eng, testAuth(t)).RegisterRoutes(mux)
	return mux
}

func TestStartWorkflowEndpoint_Success(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	body, _ := json.Marshal(models.StartWorkflowRequest{
		WorkflowID: "onboarding",
		UserEmail:  "user@example.com",
		UserID:     "u1",
	})
	req := httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.StartWorkflowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if !resp.Success || resp.InstanceID == "" {
		t.Errorf("Expected success with an instance id, got %+v", resp)
	}
}

func TestStartWorkflowEndpoint_UnknownWorkflow(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	body := []byte(`{"workflowId":"nope","userEmail":"user@example.com","userId":"u1"}`)
	req := httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStartWorkflowEndpoint_BadPayload(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	// Invalid JSON
	req := httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid JSON, got %d", w.Code)
	}

	// Missing required fields
	req = httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte(`{"workflowId":"onboarding"}`)))
	req.Header.Set("X-API-Key", "test-key")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing fields, got %d", w.Code)
	}

	// Bad email address
	req = httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte(`{"workflowId":"onboarding","userEmail":"not-an-email","userId":"u1"}`)))
	req.Header.Set("X-API-Key", "test-key")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid email, got %d", w.Code)
	}
}

func TestStopWorkflowEndpoint_NotFound(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	body := []byte(`{"instanceId":"ghost"}`)
	req := httptest.NewRequest("POST", "/api/workflows/stop", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStopWorkflowEndpoint_Success(t *testing.T) {
	cancelled := false
	instances := &MockInstanceRepo{
		FindByIDFunc: func(id string) (*domain.WorkflowInstance, error) {
			return &domain.WorkflowInstance{ID: id, Status: domain.InstanceStatusActive}, nil
		},
		MarkCancelledFunc: func(id string) (bool, error) {
			cancelled = true
			return true, nil
		},
	}
	mux := testWorkflowsMux(t, instances)

	body := []byte(`{"instanceId":"inst-1"}`)
	req := httptest.NewRequest("POST", "/api/workflows/stop", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !cancelled {
		t.Error("Expected the instance to be cancelled")
	}
}

func TestTriggerEventEndpoint(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	body := []byte(`{"trigger":"user_signup","userEmail":"user@example.com","userId":"u1"}`)
	req := httptest.NewRequest("POST", "/api/events", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.TriggerEventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if len(resp.InstanceIDs) != 1 {
		t.Errorf("Expected 1 started instance, got %v", resp.InstanceIDs)
	}
}

func TestGetInstanceEndpoint(t *testing.T) {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	instances := &MockInstanceRepo{
		FindByIDFunc: func(id string) (*domain.WorkflowInstance, error) {
			return &domain.WorkflowInstance{
				ID:          id,
				WorkflowID:  "onboarding",
				UserID:      "u1",
				UserEmail:   "user@example.com",
				Status:      domain.InstanceStatusActive,
				CurrentStep: 1,
				Metadata:    sql.NullString{String: `{"plan":"trial"}`, Valid: true},
				StartedAt:   started,
			}, nil
		},
	}
	mux := testWorkflowsMux(t, instances)

	req := httptest.NewRequest("GET", "/api/workflows/inst-1", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.APIInstanceDetail
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if resp.Instance.ID != "inst-1" || resp.Instance.CurrentStep != 1 {
		t.Errorf("Unexpected instance payload: %+v", resp.Instance)
	}
	if resp.Instance.Metadata["plan"] != "trial" {
		t.Errorf("Expected metadata to round-trip, got %v", resp.Instance.Metadata)
	}
}

func TestListUserWorkflowsEndpoint(t *testing.T) {
	instances := &MockInstanceRepo{
		FindActiveByUserFunc: func(userID string) (*[]domain.WorkflowInstance, error) {
			return &[]domain.WorkflowInstance{
				{ID: "inst-1", WorkflowID: "onboarding", UserID: userID, Status: domain.InstanceStatusActive},
				{ID: "inst-2", WorkflowID: "trial_expiring", UserID: userID, Status: domain.InstanceStatusActive},
			}, nil
		},
	}
	mux := testWorkflowsMux(t, instances)

	req := httptest.NewRequest("GET", "/api/users/u1/workflows", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.UserWorkflowsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if len(resp.Instances) != 2 || resp.Instances[0].ID != "inst-1" {
		t.Errorf("Unexpected instances payload: %+v", resp.Instances)
	}
}

func TestWorkflowEndpoints_RequireAPIKey(t *testing.T) {
	mux := testWorkflowsMux(t, &MockInstanceRepo{})

	// No key
	req := httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	// Wrong key
	req = httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte("{}")))
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got %d", w.Code)
	}
}

func TestWorkflowEndpoints_UnconfiguredAuth(t *testing.T) {
	eng := testEngine(t, &MockInstanceRepo{}, &MockScheduleRepo{}, &MockEmailLogRepo{}, &MockSender{})
	mux := http.NewServeMux()
	NewWorkflowsController(eng, NewAuthController(config.AuthConfig{})).RegisterRoutes(mux)

	req := httptest.NewRequest("POST", "/api/workflows/start", bytes.NewReader([]byte("{}")))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 when no hash is configured, got %d", w.Code)
	}
}
