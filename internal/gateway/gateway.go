// Package gateway puts the chat and embedding providers behind the two calls
// the rest of the service needs.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/providers/embedding"
	"github.com/yoockh/studybuddy/internal/providers/llm"
	"github.com/yoockh/studybuddy/internal/utils"
)

// ErrEmbeddingDisabled is returned by Embed when no embedding provider is configured.
var ErrEmbeddingDisabled = errors.New("embedding provider disabled")

type Gateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

type gateway struct {
	chat    llm.Provider
	embed   embedding.Embedder
	timeout time.Duration
	metrics *observability.Metrics
}

// New builds a gateway. embed may be nil; timeout 0 means the caller's
// context is the only bound on a model call.
func New(chat llm.Provider, embed embedding.Embedder, timeout time.Duration, m *observability.Metrics) Gateway {
	return &gateway{chat: chat, embed: embed, timeout: timeout, metrics: m}
}

func (g *gateway) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "Gateway.Complete"

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	c, err := g.chat.Complete(ctx, prompt)
	g.metrics.ObserveModelCall(g.chat.Name(), time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", utils.E(utils.CodeGateway, op, "model call timed out", err)
		}
		return "", utils.E(utils.CodeGateway, op, "model call failed", err)
	}
	return c.String(), nil
}

func (g *gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "Gateway.Embed"

	if g.embed == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "embedding disabled", ErrEmbeddingDisabled)
	}
	v, err := g.embed.Embed(ctx, text)
	if err != nil {
		return nil, utils.E(utils.CodeGateway, op, "embedding call failed", err)
	}
	return v, nil
}
