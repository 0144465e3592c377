// Package memory holds process-local repositories for development and tests.
// They honour the same validity and single-use rules as the DynamoDB ones.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/legal-directory-api/internal/domain"
)

type OtpChallengeRepo struct {
	mu   sync.Mutex
	rows map[string][]domain.OtpChallenge // by mobile, in insertion order
}

func NewOtpChallengeRepo() *OtpChallengeRepo {
	return &OtpChallengeRepo{rows: make(map[string][]domain.OtpChallenge)}
}

func (r *OtpChallengeRepo) Put(_ context.Context, c *domain.OtpChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.MobileNumber] = append(r.rows[c.MobileNumber], *c)
	return nil
}

func (r *OtpChallengeRepo) LatestValid(_ context.Context, mobile string, now time.Time) (*domain.OtpChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[mobile]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Valid(now) {
			c := rows[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("otp challenge not found: %w", domain.ErrNotFound)
}

func (r *OtpChallengeRepo) Consume(_ context.Context, c *domain.OtpChallenge, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[c.MobileNumber]
	for i := range rows {
		if rows[i].ChallengeID != c.ChallengeID {
			continue
		}
		if !rows[i].Valid(now) {
			return fmt.Errorf("otp challenge already consumed: %w", domain.ErrConflict)
		}
		at := now.UTC()
		rows[i].Used = true
		rows[i].VerifiedAt = &at
		return nil
	}
	return fmt.Errorf("otp challenge not found: %w", domain.ErrNotFound)
}

// All returns a copy of every challenge stored for mobile, oldest first.
func (r *OtpChallengeRepo) All(mobile string) []domain.OtpChallenge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OtpChallenge(nil), r.rows[mobile]...)
}
