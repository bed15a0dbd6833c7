package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/internal/email"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

func testMailerMux(t *testing.T, sender email.Sender, logs *MockEmailLogRepo) *http.ServeMux {
	t.Helper()
	templates := email.NewTemplates("https://app.example.com")
	mux := http.NewServeMux()
	NewMailerController(templates, sender, logs, core.NewRealClock(), testAuth(t)).RegisterRoutes(mux)
	return mux
}

func TestSendDownloadPassword_Success(t *testing.T) {
	var sentMsg email.Message
	sender := &MockSender{
		SendFunc: func(ctx context.Context, msg email.Message) (*email.Result, error) {
			sentMsg = msg
			return &email.Result{Provider: "sendgrid", MessageID: "sg-1"}, nil
		},
	}
	var logged *domain.EmailLogEntry
	logs := &MockEmailLogRepo{
		SaveFunc: func(e *domain.EmailLogEntry) error {
			logged = e
			return nil
		},
	}
	mux := testMailerMux(t, sender, logs)

	body := []byte(`{"email":"user@example.com","userId":"u1","password":"zip-pass-123","siteName":"Casino Royale","slug":"casino-royale"}`)
	req := httptest.NewRequest("POST", "/api/send-download-password", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if sentMsg.To != "user@example.com" {
		t.Errorf("Expected send to user@example.com, got %q", sentMsg.To)
	}
	if sentMsg.Subject != "Your Secure Download Password" {
		t.Errorf("Unexpected subject %q", sentMsg.Subject)
	}
	if !strings.Contains(sentMsg.HTML, "zip-pass-123") {
		t.Error("Expected the password in the rendered email")
	}
	if logged == nil || logged.Status != domain.EmailLogStatusSent {
		t.Errorf("Expected a sent log entry, got %+v", logged)
	}
	if logged.ProviderMessageID.String != "sg-1" {
		t.Errorf("Expected provider message id sg-1, got %q", logged.ProviderMessageID.String)
	}
}

func TestSendDownloadPassword_SecurePackageSubject(t *testing.T) {
	var sentMsg email.Message
	sender := &MockSender{
		SendFunc: func(ctx context.Context, msg email.Message) (*email.Result, error) {
			sentMsg = msg
			return &email.Result{Provider: "sendgrid"}, nil
		},
	}
	mux := testMailerMux(t, sender, &MockEmailLogRepo{})

	body := []byte(`{"email":"user@example.com","userId":"u1","password":"p","siteName":"s","isSecurePackage":true}`)
	req := httptest.NewRequest("POST", "/api/send-download-password", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if sentMsg.Subject != "Secure Package Access" {
		t.Errorf("Expected secure package subject, got %q", sentMsg.Subject)
	}
}

func TestSendDownloadPassword_SendFailureIsLogged(t *testing.T) {
	sender := &MockSender{
		SendFunc: func(ctx context.Context, msg email.Message) (*email.Result, error) {
			return nil, errors.New("provider unavailable")
		},
	}
	var logged *domain.EmailLogEntry
	logs := &MockEmailLogRepo{
		SaveFunc: func(e *domain.EmailLogEntry) error {
			logged = e
			return nil
		},
	}
	mux := testMailerMux(t, sender, logs)

	body := []byte(`{"email":"user@example.com","userId":"u1","password":"p","siteName":"s"}`)
	req := httptest.NewRequest("POST", "/api/send-download-password", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if logged == nil || logged.Status != domain.EmailLogStatusFailed {
		t.Errorf("Expected a failed log entry, got %+v", logged)
	}
}

func TestSendDownloadPassword_Validation(t *testing.T) {
	mux := testMailerMux(t, &MockSender{}, &MockEmailLogRepo{})

	body := []byte(`{"email":"user@example.com"}`)
	req := httptest.NewRequest("POST", "/api/send-download-password", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing fields, got %d", w.Code)
	}
}
