// Package otp issues and verifies single-use one-time codes bound to a
// mobile number.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/legal-directory-api/internal/domain"
	"github.com/legal-directory-api/internal/pkg/id"
	"github.com/legal-directory-api/internal/pkg/secure"
	"go.uber.org/zap"
)

// CodeLength is the number of digits in an issued code.
const CodeLength = 6

// ErrInvalidOTP covers every verification failure: no challenge, expired,
// wrong code, or lost a race to consume it.
var ErrInvalidOTP = fmt.Errorf("invalid or expired OTP: %w", domain.ErrUnauthorized)

// ChallengeRepository is the storage the service needs.
type ChallengeRepository interface {
	Put(ctx context.Context, c *domain.OtpChallenge) error
	LatestValid(ctx context.Context, mobile string, now time.Time) (*domain.OtpChallenge, error)
	// Consume marks c used only if it is still unused and unexpired; it
	// returns domain.ErrConflict otherwise.
	Consume(ctx context.Context, c *domain.OtpChallenge, now time.Time) error
}

type Service interface {
	Issue(ctx context.Context, mobile, clientIP string) (string, error)
	Verify(ctx context.Context, mobile, code string) error
}

type ServiceDeps struct {
	Repo   ChallengeRepository
	TTL    time.Duration
	Clock  func() time.Time
	Logger *zap.Logger
}

type service struct {
	repo ChallengeRepository
	ttl  time.Duration
	now  func() time.Time
	log  *zap.Logger
}

func NewService(d ServiceDeps) Service {
	s := &service{repo: d.Repo, ttl: d.TTL, now: d.Clock, log: d.Logger}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Issue(ctx context.Context, mobile, clientIP string) (string, error) {
	code, err := secure.RandomDigits(CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	now := s.now().UTC()
	c := &domain.OtpChallenge{
		MobileNumber: mobile,
		ChallengeID:  id.New(),
		CodeHash:     secure.Hash(code),
		ExpiresAt:    now.Add(s.ttl).Unix(),
		IPAddress:    clientIP,
		CreatedAt:    now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return "", fmt.Errorf("store otp challenge: %w", err)
	}
	s.log.Info("otp issued", zap.String("mobile_number", mobile), zap.String("challenge_id", c.ChallengeID))
	return code, nil
}

func (s *service) Verify(ctx context.Context, mobile, code string) error {
	now := s.now()
	c, err := s.repo.LatestValid(ctx, mobile, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("lookup otp challenge: %w", err)
	}
	if !secure.Equal(secure.Hash(code), c.CodeHash) {
		s.log.Info("otp mismatch", zap.String("mobile_number", mobile))
		return ErrInvalidOTP
	}
	if err := s.repo.Consume(ctx, c, now); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	s.log.Info("otp verified", zap.String("mobile_number", mobile), zap.String("challenge_id", c.ChallengeID))
	return nil
}
