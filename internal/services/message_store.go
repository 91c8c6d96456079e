package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/repositories/jsonl"
	"github.com/yoockh/studybuddy/internal/storage"
	"github.com/yoockh/studybuddy/internal/utils"
)

const exportTimeLayout = "20060102T150405Z"

// IndexQueue holds turns whose index write failed so they can be replayed.
type IndexQueue interface {
	Enqueue(ctx context.Context, t models.Turn) error
}

// MessageStore is the per-user conversation log plus its semantic index.
// The log is authoritative; the index is written after it, best effort.
type MessageStore interface {
	Append(ctx context.Context, userID string, role models.Role, content string, sessionID *string) (models.Turn, error)
	// Read returns the last k turns in append order.
	Read(ctx context.Context, userID string, k int) ([]models.Turn, error)
	Export(ctx context.Context, userID string) (models.ExportResult, error)
	Clear(ctx context.Context, userID string) error
}

type MessageStoreOptions struct {
	Conversations jsonl.ConversationRepo
	// Indexer, Queue and Uploader are optional.
	Indexer   Indexer
	Queue     IndexQueue
	Uploader  storage.Uploader
	ExportDir string
	Logger    logrus.FieldLogger
	Metrics   *observability.Metrics
	Now       func() time.Time
}

type messageStore struct {
	convos    jsonl.ConversationRepo
	indexer   Indexer
	queue     IndexQueue
	uploader  storage.Uploader
	exportDir string
	log       logrus.FieldLogger
	metrics   *observability.Metrics
	now       func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewMessageStore(o MessageStoreOptions) MessageStore {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	return &messageStore{
		convos:    o.Conversations,
		indexer:   o.Indexer,
		queue:     o.Queue,
		uploader:  o.Uploader,
		exportDir: o.ExportDir,
		log:       o.Logger,
		metrics:   o.Metrics,
		now:       o.Now,
		last:      make(map[string]time.Time),
	}
}

func (s *messageStore) Append(ctx context.Context, userID string, role models.Role, content string, sessionID *string) (models.Turn, error) {
	const op = "MessageStore.Append"

	if userID == "" || !role.Valid() {
		return models.Turn{}, utils.E(utils.CodeInvalidArgument, op, "user_id and a valid role are required", nil)
	}

	turn := models.Turn{
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: s.stamp(userID),
		SessionID: sessionID,
	}
	if err := s.convos.Append(ctx, turn); err != nil {
		return models.Turn{}, storeError(op, "failed to append turn", err)
	}

	s.index(ctx, turn)
	return turn, nil
}

// stamp returns the current time, never earlier than the previous stamp for
// the same user in this process.
func (s *messageStore) stamp(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if last, ok := s.last[userID]; ok && t.Before(last) {
		t = last
	}
	s.last[userID] = t
	return models.FormatTimestamp(t)
}

func (s *messageStore) index(ctx context.Context, turn models.Turn) {
	if s.indexer == nil {
		return
	}
	err := s.indexer.Index(ctx, turn)
	if err == nil {
		return
	}

	stage := "unknown"
	var ie *IndexError
	if errors.As(err, &ie) {
		stage = ie.Stage
	}
	s.metrics.IncIndexWriteFailure(stage)

	log := s.log.WithFields(logrus.Fields{
		"user_id":   turn.UserID,
		"role":      turn.Role,
		"timestamp": turn.Timestamp,
		"index_id":  models.IndexIDForTurn(turn),
		"stage":     stage,
	}).WithError(err)

	if s.queue == nil {
		log.Warn("log succeeded, index entry missing")
		return
	}
	if qerr := s.queue.Enqueue(ctx, turn); qerr != nil {
		log.WithField("queue_error", qerr.Error()).Error("log succeeded, index entry missing, replay enqueue failed")
		return
	}
	log.Warn("log succeeded, index entry queued for replay")
}

func (s *messageStore) Read(ctx context.Context, userID string, k int) ([]models.Turn, error) {
	const op = "MessageStore.Read"

	if k <= 0 {
		return []models.Turn{}, nil
	}
	turns, err := s.convos.List(ctx, userID)
	if err != nil {
		return nil, storeError(op, "failed to read conversation", err)
	}
	if len(turns) > k {
		turns = turns[len(turns)-k:]
	}
	return turns, nil
}

func (s *messageStore) Export(ctx context.Context, userID string) (models.ExportResult, error) {
	const op = "MessageStore.Export"

	turns, err := s.convos.List(ctx, userID)
	if err != nil {
		return models.ExportResult{}, storeError(op, "failed to read conversation", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(turns); err != nil {
		return models.ExportResult{}, utils.E(utils.CodeInternal, op, "failed to encode export", err)
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return models.ExportResult{}, storeError(op, "failed to create export dir", err)
	}
	name := fmt.Sprintf("%s_%s.json", userID, s.now().UTC().Format(exportTimeLayout))
	path := filepath.Join(s.exportDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return models.ExportResult{}, storeError(op, "failed to write export", err)
	}

	res := models.ExportResult{Path: path, Turns: len(turns)}
	if s.uploader != nil {
		uri, err := s.uploader.Upload(ctx, "exports/"+name, "application/json", bytes.NewReader(buf.Bytes()))
		if err != nil {
			// the local file is the export; the upload is a copy
			s.log.WithError(err).WithField("path", path).Warn("export upload failed")
		} else {
			res.RemoteURI = uri
		}
	}
	return res, nil
}

func (s *messageStore) Clear(ctx context.Context, userID string) error {
	const op = "MessageStore.Clear"

	if err := s.convos.Delete(ctx, userID); err != nil {
		return storeError(op, "failed to clear conversation", err)
	}
	return nil
}

func storeError(op, msg string, err error) error {
	if errors.Is(err, jsonl.ErrInvalidUserID) {
		return utils.E(utils.CodeInvalidArgument, op, "invalid user_id", err)
	}
	return utils.E(utils.CodeStore, op, msg, err)
}
