package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// OpenAIConfig configures an OpenAI-compatible /v1/embeddings provider.
type OpenAIConfig struct {
	// BaseURL includes the version prefix, e.g. http://localhost:8080/v1.
	BaseURL string
	APIKey  string
	Model   string
	// Dimensions is sent as the requested output size when non-zero.
	Dimensions int
}

// OpenAIEmbedder calls any server implementing the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	config OpenAIConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for cfg. The SDK's own retries
// are disabled; Client owns the retry policy.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Transport: &http.Transport{
			MaxIdleConnsPerHost: OllamaPoolSize,
			IdleConnTimeout:     10 * time.Second,
		}}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// Local servers usually accept any key.
		opts = append(opts, option.WithAPIKey("unused"))
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		config: cfg,
		dims:   cfg.Dimensions,
	}
}

// Embed generates embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request and reorders the response by index.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, amerrors.New(amerrors.ErrCodeProviderUnavailable, "embedder is closed", nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.config.Model),
	}
	if e.config.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.config.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, amerrors.New(amerrors.ErrCodeInvalidEmbedding,
			fmt.Sprintf("provider returned %d embeddings for %d inputs", len(resp.Data), len(texts)), nil)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			return nil, amerrors.New(amerrors.ErrCodeInvalidEmbedding,
				fmt.Sprintf("provider returned invalid or duplicate index %d", d.Index), nil)
		}
		out[idx] = normalizeVector(toFloat32(d.Embedding))
	}

	e.mu.Lock()
	if e.dims == 0 && len(out[0]) > 0 {
		e.dims = len(out[0])
	}
	e.mu.Unlock()

	return out, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus("openai", apiErr.StatusCode, apiErr.Message)
	}
	return classifyTransport("openai", err)
}

// Dimensions returns the embedding dimension, 0 before the first response.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier
func (e *OpenAIEmbedder) ModelName() string {
	return e.config.Model
}

// Available embeds a probe string.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	_, err := e.Embed(ctx, "ping")
	return err == nil
}

// Close releases resources
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
