package http

import (
	"net"

	"github.com/legal-directory-api/internal/application/auth"
	"github.com/legal-directory-api/internal/ratelimit"
	"github.com/legal-directory-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds everything the router needs. All fields are required.
type Deps struct {
	Auth auth.Service
	// Tokens verifies access tokens for the protected routes.
	Tokens  middleware.TokenVerifier
	Limiter ratelimit.Backend
	// EncryptionKey is the derived 32-byte AES key for request payloads.
	EncryptionKey []byte
	// TrustedProxies are the peers allowed to set forwarding headers. May be empty.
	TrustedProxies []*net.IPNet
	Logger         *zap.Logger
}
