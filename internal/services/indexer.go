package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/yoockh/studybuddy/internal/gateway"
	"github.com/yoockh/studybuddy/internal/models"
)

// IndexRepo is the write side of the semantic index. Upserting an id that
// already exists must be a no-op.
type IndexRepo interface {
	Upsert(ctx context.Context, e *models.IndexEntry) error
}

// Indexer embeds a turn and writes it to the semantic index.
type Indexer interface {
	Index(ctx context.Context, t models.Turn) error
}

// IndexError tells which step of an index write failed: "embed" or "upsert".
type IndexError struct {
	Stage string
	Err   error
}

func (e *IndexError) Error() string { return fmt.Sprintf("index %s: %v", e.Stage, e.Err) }

func (e *IndexError) Unwrap() error { return e.Err }

type indexer struct {
	gw   gateway.Gateway
	repo IndexRepo
}

func NewIndexer(gw gateway.Gateway, repo IndexRepo) Indexer {
	return &indexer{gw: gw, repo: repo}
}

func (x *indexer) Index(ctx context.Context, t models.Turn) error {
	vec, err := x.gw.Embed(ctx, t.Content)
	if err != nil {
		return &IndexError{Stage: "embed", Err: err}
	}

	meta, err := json.Marshal(models.IndexMetadata{
		UserID:    t.UserID,
		Role:      t.Role,
		Timestamp: t.Timestamp,
		SessionID: t.SessionID,
	})
	if err != nil {
		return &IndexError{Stage: "upsert", Err: err}
	}

	entry := &models.IndexEntry{
		ID:         models.IndexIDForTurn(t),
		Collection: models.IndexCollection,
		UserID:     t.UserID,
		Content:    t.Content,
		Embedding:  pgvector.NewVector(vec),
		Metadata:   datatypes.JSON(meta),
	}
	if err := x.repo.Upsert(ctx, entry); err != nil {
		return &IndexError{Stage: "upsert", Err: err}
	}
	return nil
}
