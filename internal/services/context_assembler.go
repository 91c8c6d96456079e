package services

import (
	"context"
	"strings"

	"github.com/yoockh/studybuddy/internal/models"
)

// ContextAssembler renders recent turns as prompt text.
type ContextAssembler interface {
	Render(ctx context.Context, userID string, k int) (string, error)
}

type contextAssembler struct {
	store MessageStore
}

func NewContextAssembler(store MessageStore) ContextAssembler {
	return &contextAssembler{store: store}
}

func (a *contextAssembler) Render(ctx context.Context, userID string, k int) (string, error) {
	turns, err := a.store.Read(ctx, userID, k)
	if err != nil {
		return "", err
	}
	return RenderTurns(turns), nil
}

// RenderTurns writes one "Student: ..." or "Assistant: ..." line per turn.
func RenderTurns(turns []models.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		who := "Assistant"
		if t.Role == models.RoleUser {
			who = "Student"
		}
		lines = append(lines, who+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}
