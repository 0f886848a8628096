package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// ClientConfig is the call policy applied around a provider.
type ClientConfig struct {
	// Timeout bounds one provider request.
	Timeout time.Duration
	// Retry governs transient failures (timeouts, 5xx, 429, connection errors).
	Retry amerrors.RetryConfig
	// Concurrency caps provider requests in flight for one EmbedBatch call.
	Concurrency int
	// BatchSize is the number of texts per provider request.
	BatchSize int
	// RequestsPerSecond throttles provider requests; 0 disables.
	RequestsPerSecond float64
	// Dimensions is the expected vector size; 0 learns it from the first response.
	Dimensions int
	// BreakerFailures consecutive transient failures open the circuit.
	BreakerFailures int
	// BreakerReset is how long the circuit stays open before a probe.
	BreakerReset time.Duration
}

// DefaultClientConfig returns the default call policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         DefaultTimeout,
		Retry:           amerrors.DefaultRetryConfig(),
		Concurrency:     DefaultConcurrency,
		BatchSize:       DefaultBatchSize,
		BreakerFailures: 5,
		BreakerReset:    30 * time.Second,
	}
}

// Client applies ClientConfig to a provider. It never returns a nil,
// zero, non-finite or wrong-sized vector as a success.
type Client struct {
	provider Embedder
	cfg      ClientConfig
	limiter  *rate.Limiter
	breaker  *amerrors.Breaker

	mu   sync.RWMutex
	dims int
}

var _ Embedder = (*Client)(nil)

// NewClient wraps provider with the call policy in cfg.
func NewClient(provider Embedder, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, MaxBatchSize)

	c := &Client{
		provider: provider,
		cfg:      cfg,
		breaker:  amerrors.NewBreaker(provider.ModelName(), cfg.BreakerFailures, cfg.BreakerReset),
		dims:     cfg.Dimensions,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(math.Ceil(cfg.RequestsPerSecond)))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Embed generates embedding for a single text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into provider batches and embeds them in
// parallel, up to Concurrency at a time. The first failure cancels the
// remaining batches.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embedWithPolicy(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(results[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Prefer the caller's cancellation over errors it caused.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return results, nil
}

func (c *Client) embedWithPolicy(ctx context.Context, texts []string) ([][]float32, error) {
	attempt := 0
	return amerrors.RetryWithResult(ctx, c.cfg.Retry, func() ([][]float32, error) {
		attempt++
		if err := c.breaker.Allow(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				c.breaker.Release()
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		vecs, err := c.provider.EmbedBatch(callCtx, texts)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				c.breaker.Release()
				return nil, ctx.Err()
			}
			if _, ok := amerrors.As(err); !ok {
				err = classifyTransport(c.provider.ModelName(), err)
			}
			// A non-retryable answer still came from a reachable provider.
			if amerrors.IsRetryable(err) {
				c.breaker.Failure()
			} else {
				c.breaker.Success()
			}
			slog.Debug("embedding_attempt_failed",
				slog.String("model", c.provider.ModelName()),
				slog.Int("attempt", attempt),
				slog.Int("texts", len(texts)),
				slog.String("error", err.Error()))
			return nil, err
		}

		c.breaker.Success()
		if err := c.validate(vecs, len(texts)); err != nil {
			return nil, err
		}
		return vecs, nil
	})
}

// validate enforces one finite, non-zero vector of the deployment
// dimension per input. The first valid response fixes the dimension
// when none was configured.
func (c *Client) validate(vecs [][]float32, n int) error {
	if len(vecs) != n {
		return amerrors.New(amerrors.ErrCodeInvalidEmbedding,
			fmt.Sprintf("provider returned %d vectors for %d inputs", len(vecs), n), nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	want := c.dims
	for i, v := range vecs {
		if len(v) == 0 {
			return amerrors.New(amerrors.ErrCodeInvalidEmbedding,
				fmt.Sprintf("provider returned an empty vector for input %d", i), nil)
		}
		if want == 0 {
			want = len(v)
		}
		if len(v) != want {
			return amerrors.New(amerrors.ErrCodeInvalidEmbedding,
				fmt.Sprintf("provider returned %d dimensions, expected %d", len(v), want), nil).
				WithSuggestion("set embeddings.dimensions to match the model, or re-index into a new database")
		}
		if !usable(v) {
			return amerrors.New(amerrors.ErrCodeInvalidEmbedding,
				fmt.Sprintf("provider returned a zero or non-finite vector for input %d", i), nil)
		}
	}
	c.dims = want
	return nil
}

func usable(v []float32) bool {
	nonZero := false
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
		if f != 0 {
			nonZero = true
		}
	}
	return nonZero
}

// Dimensions returns the expected or learned dimension, falling back to
// the provider's.
func (c *Client) Dimensions() int {
	c.mu.RLock()
	d := c.dims
	c.mu.RUnlock()
	if d == 0 {
		return c.provider.Dimensions()
	}
	return d
}

// ModelName returns the provider's model identifier.
func (c *Client) ModelName() string {
	return c.provider.ModelName()
}

// Available checks the provider directly, bypassing the retry policy.
func (c *Client) Available(ctx context.Context) bool {
	return c.provider.Available(ctx)
}

// BreakerState reports the provider circuit state.
func (c *Client) BreakerState() amerrors.State {
	return c.breaker.State()
}

// Close closes the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
