package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/studybuddy/internal/coercer"
	"github.com/yoockh/studybuddy/internal/gateway"
	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/prompt"
	"github.com/yoockh/studybuddy/internal/utils"
)

// sidebarLoad is how many turns History reads before trimming to memory_k.
const sidebarLoad = 200

type ChatService interface {
	// ProcessTurn answers one question. Nothing is persisted when the model
	// call fails.
	ProcessTurn(ctx context.Context, userID string, sessionID *string, question string, memoryK int) (models.StudyAnswer, error)
	History(ctx context.Context, userID string, memoryK int) ([]models.Turn, error)
}

type chatService struct {
	context ContextAssembler
	gw      gateway.Gateway
	coercer *coercer.Coercer
	store   MessageStore
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

func NewChatService(ca ContextAssembler, gw gateway.Gateway, co *coercer.Coercer, store MessageStore, log logrus.FieldLogger, m *observability.Metrics) ChatService {
	if co == nil {
		co = coercer.Default()
	}
	if log == nil {
		log = logrus.New()
	}
	return &chatService{context: ca, gw: gw, coercer: co, store: store, log: log, metrics: m}
}

func (s *chatService) ProcessTurn(ctx context.Context, userID string, sessionID *string, question string, memoryK int) (models.StudyAnswer, error) {
	const op = "ChatService.ProcessTurn"

	if userID == "" || strings.TrimSpace(question) == "" {
		return models.StudyAnswer{}, utils.E(utils.CodeInvalidArgument, op, "user_id and question are required", nil)
	}
	log := s.log.WithField("user_id", userID)

	history, err := s.context.Render(ctx, userID, memoryK)
	if err != nil {
		s.metrics.IncTurn("store_error")
		return models.StudyAnswer{}, err
	}

	raw, err := s.gw.Complete(ctx, prompt.Build(history, question))
	if err != nil {
		s.metrics.IncTurn("gateway_error")
		log.WithError(err).Warn("model call failed, turn not persisted")
		return models.StudyAnswer{}, err
	}

	answer, path := s.coercer.CoerceWithPath(raw)
	s.metrics.IncCoercion(string(path))
	if path == coercer.PathFallback {
		log.WithField("raw_len", len(raw)).Debug("model output not parseable, using fallback answer")
	}

	if _, err := s.store.Append(ctx, userID, models.RoleUser, question, sessionID); err != nil {
		s.metrics.IncTurn("store_error")
		return models.StudyAnswer{}, err
	}
	if _, err := s.store.Append(ctx, userID, models.RoleAssistant, answer.Answer, sessionID); err != nil {
		s.metrics.IncTurn("store_error")
		log.WithError(err).Error("assistant turn not written, user turn left dangling")
		return models.StudyAnswer{}, err
	}

	s.metrics.IncTurn("ok")
	return answer, nil
}

func (s *chatService) History(ctx context.Context, userID string, memoryK int) ([]models.Turn, error) {
	const op = "ChatService.History"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	turns, err := s.store.Read(ctx, userID, sidebarLoad)
	if err != nil {
		return nil, err
	}
	if memoryK < 0 {
		memoryK = 0
	}
	if len(turns) > memoryK {
		turns = turns[len(turns)-memoryK:]
	}
	return turns, nil
}
