package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/legal-directory-api/internal/application/otp"
	"github.com/legal-directory-api/internal/application/session"
	"github.com/legal-directory-api/internal/domain"
	"github.com/legal-directory-api/internal/pkg/validate"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

// httpError maps service errors to responses. Internal details are logged,
// never returned.
func httpError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, StatusEnvelope{Status: statusError, Message: "Validation failed", Errors: verrs})
	case errors.Is(err, otp.ErrInvalidOTP):
		writeError(w, http.StatusUnauthorized, "Invalid or expired OTP")
	case errors.Is(err, session.ErrInvalidRefresh):
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests")
	case errors.Is(err, domain.ErrUpstream):
		log.Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Upstream service unavailable")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "Bad request")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// An empty body validates as an empty object.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return validate.Errors{"body": {"The request body must be a valid JSON object."}}
	}
	return validate.Struct(dst)
}
