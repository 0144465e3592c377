package handler

import (
	"encoding/json"
	"net/http"

	"github.com/legal-directory-api/internal/pkg/validate"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// MessageEnvelope is the bare response used by the health check.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// StatusEnvelope is the generic {status, message} response. Errors is set
// only for validation failures.
type StatusEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Errors  validate.Errors `json:"errors,omitempty"`
}

// OTPSentEnvelope answers a successful send.
type OTPSentEnvelope struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	MobileNumber string `json:"mobile_number"`
}

// TokenEnvelope carries an access token. The refresh token travels only in
// its cookie.
type TokenEnvelope struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MeEnvelope describes the caller's access token.
type MeEnvelope struct {
	Status       string `json:"status"`
	MobileNumber string `json:"mobile_number"`
	ExpiresAt    int64  `json:"expires_at"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, StatusEnvelope{Status: statusError, Message: msg})
}
