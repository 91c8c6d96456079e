// Package inmemory holds process-local repositories used when no database is
// configured.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/utils"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]models.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.sessions[s.SessionID] = *s
	return nil
}

func (r *SessionRepo) GetBySessionID(_ context.Context, sessionID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepo) SetMemoryK(_ context.Context, sessionID string, k int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return utils.ErrNotFound
	}
	s.MemoryK = k
	s.UpdatedAt = at.UTC()
	r.sessions[sessionID] = s
	return nil
}
