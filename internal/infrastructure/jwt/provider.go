package jwtinfra

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/legal-directory-api/internal/config"
	"github.com/legal-directory-api/internal/pkg/secure"
)

// KindAccess is the only token kind accepted by the request gate.
const KindAccess = "access"

// ErrInvalidToken is returned for every verification failure. Callers must not
// distinguish between a bad signature, a malformed body and an expired token.
var ErrInvalidToken = errors.New("invalid or expired token")

// strict rejects non-canonical encodings, so altering any character of a
// segment changes the decoded bytes or fails outright.
var b64 = base64.StdEncoding.Strict()

type header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

// Payload is the body of an access token. Timestamps are Unix seconds.
type Payload struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Kind      string `json:"type"`
}

// Provider mints and verifies HMAC-SHA256 signed access tokens of the form
// base64(header).base64(body).base64(mac). Segments use padded standard
// base64, which is what deployed clients already parse.
type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.AppKey == "" {
		return nil, errors.New("signing secret is empty")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", cfg.AccessTokenTTL)
	}
	return &Provider{secret: []byte(cfg.AppKey), ttl: cfg.AccessTokenTTL, now: time.Now}, nil
}

// TTL is the lifetime of minted tokens.
func (p *Provider) TTL() time.Duration { return p.ttl }

// Mint issues a fresh access token for mobile.
func (p *Provider) Mint(mobile string) (string, error) {
	now := p.now().Unix()
	h, err := json.Marshal(header{Typ: "JWT", Alg: "HS256"})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(Payload{
		Subject:   mobile,
		IssuedAt:  now,
		ExpiresAt: now + int64(p.ttl/time.Second),
		Kind:      KindAccess,
	})
	if err != nil {
		return "", err
	}
	signing := b64.EncodeToString(h) + "." + b64.EncodeToString(body)
	sig, err := secure.MAC(signing, p.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signing + "." + b64.EncodeToString(sig), nil
}

// Verify checks the signature and expiry of tokenStr and returns its payload.
// The kind discriminator is left to the caller.
func (p *Provider) Verify(tokenStr string) (*Payload, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !secure.VerifyMAC(parts[0]+"."+parts[1], sig, p.secret) {
		return nil, ErrInvalidToken
	}
	raw, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalidToken
	}
	if payload.ExpiresAt == 0 || payload.ExpiresAt < p.now().Unix() {
		return nil, ErrInvalidToken
	}
	return &payload, nil
}
