package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
)

const (
	DefaultOpenAIModel  = "text-embedding-3-small"
	DefaultBedrockModel = "amazon.titan-embed-text-v1"
)

// Embedder turns one chunk into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openAIEmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client  openAIEmbeddingAPI
	model   string
	metrics *metrics.AdminMetrics
}

// NewOpenAIEmbedder wraps an OpenAI client.
func NewOpenAIEmbedder(client openAIEmbeddingAPI, model string) *OpenAIEmbedder {
	if client == nil {
		panic("knowledge: openai client cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{client: client, model: model}
}

// WithMetrics records outbound call metrics.
func (e *OpenAIEmbedder) WithMetrics(m *metrics.AdminMetrics) *OpenAIEmbedder {
	e.metrics = m
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	began := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	e.metrics.ObserveOutbound("embeddings", "openai", time.Since(began).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("knowledge: openai embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("knowledge: openai embedding response was empty")
	}
	return resp.Data[0].Embedding, nil
}

type bedrockInvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls a Titan embedding model through Bedrock.
type BedrockEmbedder struct {
	api     bedrockInvokeModelAPI
	modelID string
	metrics *metrics.AdminMetrics
}

// NewBedrockEmbedder wraps a Bedrock runtime client.
func NewBedrockEmbedder(api bedrockInvokeModelAPI, modelID string) *BedrockEmbedder {
	if api == nil {
		panic("knowledge: bedrock runtime client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultBedrockModel
	}
	return &BedrockEmbedder{api: api, modelID: modelID}
}

// WithMetrics records outbound call metrics.
func (e *BedrockEmbedder) WithMetrics(m *metrics.AdminMetrics) *BedrockEmbedder {
	e.metrics = m
	return e
}

func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]any{"inputText": text})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embedding request marshal: %w", err)
	}

	began := time.Now()
	out, err := e.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	e.metrics.ObserveOutbound("embeddings", "bedrock", time.Since(began).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("knowledge: bedrock embedding: %w", err)
	}

	var decoded struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return nil, fmt.Errorf("knowledge: embedding response parse: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, errors.New("knowledge: bedrock embedding response was empty")
	}
	vec := make([]float32, len(decoded.Embedding))
	for i, f := range decoded.Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}
