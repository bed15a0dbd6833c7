package controllers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/landertag/mailflow/internal/config"
)

// AuthController guards the trigger surface. Application endpoints present an
// API key header, the cron endpoint presents a bearer secret; both are
// compared against bcrypt hashes so no plaintext secret lives in config.
type AuthController struct {
	Auth config.AuthConfig
}

func NewAuthController(auth config.AuthConfig) *AuthController {
	return &AuthController{Auth: auth}
}

// RequireAPIKey authenticates via the X-API-Key header.
func (a *AuthController) RequireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Auth.APIKeyHash == "" {
			http.Error(w, "API access not configured", http.StatusServiceUnavailable)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(a.Auth.APIKeyHash), []byte(apiKey)); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RequireCronSecret authenticates the scheduled-email endpoint via
// "Authorization: Bearer <secret>", the contract external cron services use.
func (a *AuthController) RequireCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Auth.CronSecretHash == "" {
			http.Error(w, "Cron access not configured", http.StatusServiceUnavailable)
			return
		}
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(a.Auth.CronSecretHash), []byte(token)); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
