package llm

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
	name   string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, temperature float32) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SetTemperature(temperature)
	return &VertexGemini{client: c, model: m, name: modelName}, nil
}

func (v *VertexGemini) Name() string { return "vertex:" + v.name }

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return Completion{}, err
	}
	return geminiCompletion(resp), nil
}

// geminiCompletion keeps the text parts of the first candidate that has content.
func geminiCompletion(resp *vertexgenai.GenerateContentResponse) Completion {
	out := Completion{Raw: resp}
	if resp == nil {
		out.Raw = nil
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
				out.Parts = append(out.Parts, string(t))
			}
		}
		if len(out.Parts) > 0 {
			break
		}
	}
	return out
}
