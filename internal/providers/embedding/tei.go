package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TEIEmbedder calls a Hugging Face text-embeddings-inference server
// (POST /embed), which serves sentence-transformers models such as
// all-mpnet-base-v2.
type TEIEmbedder struct {
	client *resty.Client
	model  string
}

type teiRequest struct {
	Inputs    string `json:"inputs"`
	Normalize bool   `json:"normalize"`
	Truncate  bool   `json:"truncate"`
}

func NewTEIEmbedder(baseURL, token, model string) *TEIEmbedder {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &TEIEmbedder{client: c, model: model}
}

func (e *TEIEmbedder) Model() string { return e.model }

func (e *TEIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var out [][]float32
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(teiRequest{Inputs: text, Normalize: true, Truncate: true}).
		SetResult(&out).
		Post("/embed")
	if err != nil {
		return nil, fmt.Errorf("tei request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tei error %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out) == 0 || len(out[0]) == 0 {
		return nil, errors.New("tei: no embedding returned")
	}
	return out[0], nil
}
