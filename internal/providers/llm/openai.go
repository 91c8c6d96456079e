package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat talks to any OpenAI-compatible chat completions endpoint.
type OpenAIChat struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIChat(apiKey, baseURL, model string, temperature float32) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIChat{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

func (o *OpenAIChat) Name() string { return "openai:" + o.model }

func (o *OpenAIChat) Close() error { return nil }

func (o *OpenAIChat) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Completion{}, err
	}
	return openAICompletion(resp), nil
}

func openAICompletion(resp openai.ChatCompletionResponse) Completion {
	out := Completion{Raw: resp}
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
			out.Parts = append(out.Parts, part.Text)
		}
	}
	out.Text = msg.Content
	return out
}
