package llm

import (
	"context"
	"fmt"
	"strings"
)

type Provider interface {
	// Complete sends a single prompt and waits for the whole response.
	Complete(ctx context.Context, prompt string) (Completion, error)
	Name() string
	Close() error
}

// Completion is a provider response reduced to the fields that can carry text.
type Completion struct {
	// Parts holds the structured content parts, in order.
	Parts []string
	// Text is the provider's flat text field, when it has one.
	Text string
	// Raw is the provider response, used only for the last-resort conversion.
	Raw any
}

// String normalises a completion with a fixed priority: structured content
// parts, then the flat text field, then the raw response's string form.
func (c Completion) String() string {
	if joined := strings.Join(c.Parts, ""); strings.TrimSpace(joined) != "" {
		return joined
	}
	if strings.TrimSpace(c.Text) != "" {
		return c.Text
	}
	switch raw := c.Raw.(type) {
	case nil:
		return ""
	case string:
		return raw
	case fmt.Stringer:
		return raw.String()
	default:
		return fmt.Sprint(raw)
	}
}
