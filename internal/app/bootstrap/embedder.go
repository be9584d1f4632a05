package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/knowledge"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// BuildEmbedder selects the knowledge embedding provider. A nil embedder with
// a nil error means ingestion is disabled.
func BuildEmbedder(cfg *appconfig.Config, awsCfg aws.Config, m *metrics.AdminMetrics, logger *logging.Logger) (knowledge.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch provider := strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)); provider {
	case "", "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			logger.Warn("OPENAI_API_KEY not set; knowledge ingestion disabled")
			return nil, nil
		}
		logger.Info("knowledge embeddings enabled", "provider", "openai", "model", cfg.EmbeddingModel)
		return knowledge.NewOpenAIEmbedder(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbeddingModel).WithMetrics(m), nil
	case "bedrock":
		model := strings.TrimSpace(cfg.BedrockEmbeddingModelID)
		logger.Info("knowledge embeddings enabled", "provider", "bedrock", "model", model)
		return knowledge.NewBedrockEmbedder(bedrockruntime.NewFromConfig(awsCfg), model).WithMetrics(m), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown embedding provider %q", provider)
	}
}
