// Package session manages long-lived refresh sessions. Only the SHA-256 of a
// refresh token is ever stored; the plaintext leaves the process once, in a
// cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/legal-directory-api/internal/domain"
	"github.com/legal-directory-api/internal/pkg/id"
	"github.com/legal-directory-api/internal/pkg/secure"
	pkgtoken "github.com/legal-directory-api/internal/pkg/token"
	"go.uber.org/zap"
)

// ErrInvalidRefresh is returned for unknown, revoked or expired tokens.
var ErrInvalidRefresh = fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)

type RefreshRepository interface {
	Put(ctx context.Context, s *domain.RefreshSession) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error)
	Touch(ctx context.Context, tokenHash string, at time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForMobile(ctx context.Context, mobile string) error
}

type Service interface {
	Issue(ctx context.Context, mobile, clientIP, userAgent string) (string, error)
	Redeem(ctx context.Context, plaintext string) (string, error)
	Revoke(ctx context.Context, plaintext string) error
	RevokeAll(ctx context.Context, mobile string) error
}

type ServiceDeps struct {
	Repo   RefreshRepository
	TTL    time.Duration
	Clock  func() time.Time
	Logger *zap.Logger
}

type service struct {
	repo RefreshRepository
	ttl  time.Duration
	now  func() time.Time
	log  *zap.Logger
}

func NewService(d ServiceDeps) Service {
	s := &service{repo: d.Repo, ttl: d.TTL, now: d.Clock, log: d.Logger}
	if s.ttl <= 0 {
		s.ttl = 30 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Issue(ctx context.Context, mobile, clientIP, userAgent string) (string, error) {
	plaintext, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.now().UTC()
	rs := &domain.RefreshSession{
		TokenHash:    secure.Hash(plaintext),
		SessionID:    id.New(),
		MobileNumber: mobile,
		ExpiresAt:    now.Add(s.ttl).Unix(),
		IPAddress:    clientIP,
		UserAgent:    userAgent,
		CreatedAt:    now,
	}
	if err := s.repo.Put(ctx, rs); err != nil {
		return "", fmt.Errorf("store refresh session: %w", err)
	}
	s.log.Info("refresh session issued", zap.String("mobile_number", mobile), zap.String("session_id", rs.SessionID))
	return plaintext, nil
}

// Redeem returns the mobile number bound to a valid refresh token and records
// the use. The token is not rotated.
func (s *service) Redeem(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrInvalidRefresh
	}
	hash := secure.Hash(plaintext)
	now := s.now()
	rs, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidRefresh
		}
		return "", fmt.Errorf("lookup refresh session: %w", err)
	}
	if !rs.Valid(now) {
		return "", ErrInvalidRefresh
	}
	if err := s.repo.Touch(ctx, hash, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", ErrInvalidRefresh
		}
		return "", fmt.Errorf("touch refresh session: %w", err)
	}
	return rs.MobileNumber, nil
}

func (s *service) Revoke(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return nil
	}
	if err := s.repo.Revoke(ctx, secure.Hash(plaintext)); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *service) RevokeAll(ctx context.Context, mobile string) error {
	if err := s.repo.RevokeAllForMobile(ctx, mobile); err != nil {
		return fmt.Errorf("revoke refresh sessions: %w", err)
	}
	s.log.Info("refresh sessions revoked", zap.String("mobile_number", mobile))
	return nil
}
