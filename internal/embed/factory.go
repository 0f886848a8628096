package embed

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// Provider names accepted in configuration.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// NewProvider creates the bare provider named by cfg.Provider.
func NewProvider(cfg config.EmbeddingsConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			PoolSize:   max(cfg.Concurrency, OllamaPoolSize),
		}), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.URL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case ProviderStatic:
		return NewStaticEmbedderWithDims(cfg.Dimensions), nil
	default:
		return nil, amerrors.ConfigError(fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil)
	}
}

// NewFromConfig creates a provider wrapped in the configured call policy.
func NewFromConfig(cfg config.EmbeddingsConfig) (*Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	cc := DefaultClientConfig()
	cc.Timeout = cfg.Timeout
	cc.Retry.MaxRetries = cfg.MaxRetries
	cc.Concurrency = cfg.Concurrency
	cc.BatchSize = cfg.BatchSize
	cc.RequestsPerSecond = cfg.RequestsPerSecond
	cc.Dimensions = cfg.Dimensions
	return NewClient(provider, cc), nil
}
