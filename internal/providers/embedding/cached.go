package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/studybuddy/internal/cache"
)

// CachedEmbedder embeds identical content once per model.
type CachedEmbedder struct {
	next  Embedder
	cache cache.Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

func NewCachedEmbedder(next Embedder, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, ttl: ttl, log: log}
}

func (e *CachedEmbedder) Model() string { return e.next.Model() }

func (e *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := e.key(text)

	var v Vector
	hit, err := e.cache.GetJSON(ctx, key, &v)
	if err != nil {
		e.log.WithError(err).Warn("embedding cache read failed")
	}
	if hit && len(v) > 0 {
		return v, nil
	}

	v, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetJSON(ctx, key, v, e.ttl); err != nil {
		e.log.WithError(err).Warn("embedding cache write failed")
	}
	return v, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha1.Sum([]byte(text))
	return "emb:" + e.next.Model() + ":" + hex.EncodeToString(sum[:])
}
