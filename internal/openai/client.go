package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/retry"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultRequestsPerMinute is the embedding request budget; the initial
	// backoff interval is derived from it (60s / RPM).
	DefaultRequestsPerMinute = 100
	// DefaultMaxAttempts bounds rate-limit retries per embedding call
	DefaultMaxAttempts = 5
)

var (
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// RateLimitError signals a 429 from the provider. RetryAfter carries the
// provider-supplied reset time when available; zero means the caller's
// computed backoff applies.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit hit, retry after %s", e.RetryAfter)
	}
	return "rate limit hit"
}

// EmbeddingAPI defines the interface for raw embedding generation
type EmbeddingAPI interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingAdapter calls the OpenAI embeddings endpoint.
type EmbeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbeddingAdapter(client *openai.Client, model openai.EmbeddingModel) *EmbeddingAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingAdapter{client: client, model: model}
}

// CreateEmbedding calls the OpenAI API to create an embedding
func (a *EmbeddingAdapter) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, translateAPIError(err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

func translateAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return &RateLimitError{}
	}
	return err
}

// Config configures the embedding client.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	RequestsPerMinute   int
	MaxAttempts         int
	DailyLimit          int
}

// Client generates embeddings with rate-limit-aware retries. Requests are
// paced to the configured RPM budget; a 429 triggers exponential backoff
// starting at 60s/RPM and doubling per attempt, with a provider-supplied
// reset time taking precedence. A shared daily quota short-circuits calls
// before any network request once the ceiling is reached.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	limiter    *rate.Limiter
	quota      *DailyQuota
	policy     retry.Policy
}

// NewClient creates an embedding client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientFromEnv creates an embedding client using OPENAI_API_KEY
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// NewClientWithConfig creates an embedding client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewClientWithAPI(NewEmbeddingAdapter(openai.NewClientWithConfig(clientCfg), cfg.EmbeddingModel), cfg)
}

// NewClientWithAPI wires an explicit EmbeddingAPI, used by tests.
func NewClientWithAPI(api EmbeddingAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var quota *DailyQuota
	if cfg.DailyLimit > 0 {
		quota = NewDailyQuota(cfg.DailyLimit)
	}

	return &Client{
		api:        api,
		dimensions: dimensions,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		quota:      quota,
		policy: retry.Policy{
			MaxAttempts:  attempts,
			InitialDelay: time.Minute / time.Duration(rpm),
			Multiplier:   2,
		},
	}
}

// GenerateEmbedding generates an embedding for the given text. Exhausting
// rate-limit retries returns domain.ErrEmbeddingExhausted; callers treat it
// as "skip this unit of work", not as fatal.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	if c.quota != nil && !c.quota.Allow() {
		return nil, domain.ErrDailyQuotaReached
	}

	var embedding []float32
	err := retry.Do(ctx, c.policy, classifyRateLimit, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := c.api.CreateEmbedding(ctx, text)
		if err != nil {
			return err
		}
		embedding = result
		return nil
	})
	if err != nil {
		var rle *RateLimitError
		if errors.As(err, &rle) {
			return nil, domain.ErrEmbeddingExhausted
		}
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if c.quota != nil {
		c.quota.Record()
	}

	if len(embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

func classifyRateLimit(err error) (bool, time.Duration) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true, rle.RetryAfter
	}
	return false, 0
}
