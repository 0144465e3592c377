package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/legal-directory-api/internal/application/auth"
	"github.com/legal-directory-api/internal/domain"
	"github.com/legal-directory-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

// CookieConfig controls the refresh cookie.
type CookieConfig struct {
	MaxAge time.Duration
	// AlwaysSecure forces the Secure attribute regardless of the request.
	AlwaysSecure bool
}

// OTPHandler serves the OTP login flow under /otp.
type OTPHandler struct {
	svc    auth.Service
	cookie CookieConfig
	log    *zap.Logger
}

func NewOTPHandler(svc auth.Service, cookie CookieConfig, log *zap.Logger) *OTPHandler {
	return &OTPHandler{svc: svc, cookie: cookie, log: log}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req auth.SendOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httpError(w, h.log, err)
		return
	}
	mobile, err := h.svc.SendOTP(r.Context(), req, clientOf(r))
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			writeError(w, http.StatusBadGateway, "Failed to send OTP")
			return
		}
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPSentEnvelope{
		Status:       statusSuccess,
		Message:      "OTP sent successfully to " + mobile,
		MobileNumber: mobile,
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httpError(w, h.log, err)
		return
	}
	tokens, err := h.svc.VerifyOTP(r.Context(), req, clientOf(r))
	if err != nil {
		httpError(w, h.log, err)
		return
	}
	h.setRefreshCookie(w, r, tokens.RefreshToken)
	writeJSON(w, http.StatusOK, TokenEnvelope{
		Status:      statusSuccess,
		Message:     "OTP verified successfully",
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   tokens.ExpiresIn,
	})
}

func (h *OTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}
	tokens, err := h.svc.Refresh(r.Context(), c.Value)
	if err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{
		Status:      statusSuccess,
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   tokens.ExpiresIn,
	})
}

// Logout revokes the cookie's refresh session and clears the cookie. It
// succeeds even without a cookie.
func (h *OTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		if err := h.svc.Logout(r.Context(), c.Value); err != nil {
			httpError(w, h.log, err)
			return
		}
	}
	h.clearRefreshCookie(w, r)
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: statusSuccess, Message: "Logged out successfully"})
}

func (h *OTPHandler) setRefreshCookie(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *OTPHandler) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *OTPHandler) secure(r *http.Request) bool {
	return h.cookie.AlwaysSecure || r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func clientOf(r *http.Request) auth.Client {
	return auth.Client{IP: middleware.ClientIP(r), UserAgent: r.UserAgent()}
}
