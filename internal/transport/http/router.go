package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/legal-directory-api/internal/config"
	"github.com/legal-directory-api/internal/ratelimit"
	"github.com/legal-directory-api/internal/transport/http/handler"
	appmiddleware "github.com/legal-directory-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.TrustProxies(deps.TrustedProxies))
	r.Use(appmiddleware.RequestLogger(log.Named("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Decrypt(deps.EncryptionKey, log.Named("decrypt")))

	limit := func(p ratelimit.Policy) func(http.Handler) http.Handler {
		return appmiddleware.RateLimit(deps.Limiter, p, log.Named("ratelimit"))
	}

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(deps.Auth, handler.CookieConfig{
		MaxAge:       cfg.RefreshTokenTTL(),
		AlwaysSecure: cfg.IsProduction(),
	}, log)
	sessionH := handler.NewSessionHandler(deps.Auth, log)

	r.Get("/health-check/{action}", healthH.Ping)

	r.Route("/api", func(r chi.Router) {
		// ── Public OTP flow ──────────────────────────────────────────────────
		r.With(limit(ratelimit.OTP)).Post("/otp/send", otpH.Send)
		r.With(limit(ratelimit.OTPVerify)).Post("/otp/verify", otpH.Verify)
		r.With(limit(ratelimit.OTP)).Post("/otp/refresh", otpH.Refresh)
		r.With(limit(ratelimit.OTP)).Post("/otp/logout", otpH.Logout)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Use(limit(ratelimit.API))

			r.Get("/me", sessionH.Me)
			r.Post("/sessions/revoke-all", sessionH.RevokeAll)
		})
	})

	return r
}
