// Package embedding turns message text into vectors for the semantic index.
package embedding

import (
	"context"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Model() string
}
