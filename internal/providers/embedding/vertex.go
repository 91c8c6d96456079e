package embedding

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexEmbedder calls a Vertex AI text-embedding publisher model.
type VertexEmbedder struct {
	client   *aiplatform.PredictionClient
	endpoint string
	model    string
}

func NewVertexEmbedder(ctx context.Context, projectID, location, model string) (*VertexEmbedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	c, err := aiplatform.NewPredictionClient(ctx,
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)))
	if err != nil {
		return nil, err
	}
	return &VertexEmbedder{
		client:   c,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, location, model),
		model:    model,
	}, nil
}

func (e *VertexEmbedder) Model() string { return e.model }

func (e *VertexEmbedder) Close() error { return e.client.Close() }

func (e *VertexEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	instance, err := structpb.NewValue(map[string]any{
		"content":   text,
		"task_type": "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  e.endpoint,
		Instances: []*structpb.Value{instance},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex embed: %w", err)
	}
	if len(resp.GetPredictions()) == 0 {
		return nil, errors.New("vertex embed: no predictions returned")
	}
	return vectorFromPrediction(resp.GetPredictions()[0])
}

// vectorFromPrediction reads predictions[0].embeddings.values.
func vectorFromPrediction(p *structpb.Value) (Vector, error) {
	embeddings := p.GetStructValue().GetFields()["embeddings"]
	values := embeddings.GetStructValue().GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, errors.New("vertex embed: empty embedding values")
	}
	out := make(Vector, len(values))
	for i, v := range values {
		out[i] = float32(v.GetNumberValue())
	}
	return out, nil
}
