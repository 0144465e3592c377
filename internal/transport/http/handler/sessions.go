package handler

import (
	"net/http"

	"github.com/legal-directory-api/internal/application/auth"
	"github.com/legal-directory-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// SessionHandler serves the authenticated account endpoints.
type SessionHandler struct {
	svc auth.Service
	log *zap.Logger
}

func NewSessionHandler(svc auth.Service, log *zap.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, log: log}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PayloadFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization token not provided")
		return
	}
	writeJSON(w, http.StatusOK, MeEnvelope{Status: statusSuccess, MobileNumber: p.Subject, ExpiresAt: p.ExpiresAt})
}

// RevokeAll ends every refresh session of the caller. Access tokens already
// issued stay valid until they expire.
func (h *SessionHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	mobile, ok := middleware.MobileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization token not provided")
		return
	}
	if err := h.svc.LogoutAll(r.Context(), mobile); err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: statusSuccess, Message: "All sessions revoked"})
}
