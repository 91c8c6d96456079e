package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yoockh/studybuddy/internal/models"
	mongorepo "github.com/yoockh/studybuddy/internal/repositories/mongo"
	"github.com/yoockh/studybuddy/internal/utils"

	"github.com/google/uuid"
)

type SessionService interface {
	Start(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	SetMemoryK(ctx context.Context, sessionID string, k int) (*models.Session, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
	defaultK int
}

func NewSessionService(sessions mongorepo.SessionRepository, defaultK int) SessionService {
	if !models.ValidMemoryK(defaultK) {
		defaultK = models.MemoryKDefault
	}
	return &sessionService{sessions: sessions, defaultK: defaultK}
}

// NewUserID returns "user_" followed by 8 hex characters.
func NewUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *sessionService) Start(ctx context.Context) (*models.Session, error) {
	const op = "SessionService.Start"

	now := time.Now().UTC()
	session := &models.Session{
		SessionID: uuid.NewString(),
		UserID:    NewUserID(),
		MemoryK:   s.defaultK,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) SetMemoryK(ctx context.Context, sessionID string, k int) (*models.Session, error) {
	const op = "SessionService.SetMemoryK"

	if !models.ValidMemoryK(k) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "memory_k must be between 4 and 50", nil)
	}

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.sessions.SetMemoryK(ctx, sessionID, k, now); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update memory_k", err)
	}

	ss.MemoryK = k
	ss.UpdatedAt = now
	return ss, nil
}
