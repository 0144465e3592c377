package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/legal-directory-api/internal/domain"
)

type RefreshSessionRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.RefreshSession // by token hash
}

func NewRefreshSessionRepo() *RefreshSessionRepo {
	return &RefreshSessionRepo{rows: make(map[string]*domain.RefreshSession)}
}

func (r *RefreshSessionRepo) Put(_ context.Context, s *domain.RefreshSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[s.TokenHash]; ok {
		return fmt.Errorf("refresh session exists: %w", domain.ErrConflict)
	}
	cp := *s
	r.rows[s.TokenHash] = &cp
	return nil
}

func (r *RefreshSessionRepo) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[tokenHash]
	if !ok {
		return nil, fmt.Errorf("refresh session not found: %w", domain.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *RefreshSessionRepo) Touch(_ context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[tokenHash]
	if !ok || !s.Valid(at) {
		return fmt.Errorf("refresh session no longer valid: %w", domain.ErrConflict)
	}
	t := at.UTC()
	s.LastUsedAt = &t
	return nil
}

func (r *RefreshSessionRepo) Revoke(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[tokenHash]; ok {
		s.Revoked = true
	}
	return nil
}

func (r *RefreshSessionRepo) RevokeAllForMobile(_ context.Context, mobile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.MobileNumber == mobile {
			s.Revoked = true
		}
	}
	return nil
}
