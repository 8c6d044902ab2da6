package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/scaleworks/docquery/internal/retry"
)

// DefaultCompletionModel is the chat model used for answer synthesis
const DefaultCompletionModel = openai.GPT4oMini

// CompletionStream yields incremental pieces of generated text. Recv returns
// io.EOF when the provider finishes the answer.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// CompletionAPI opens a streaming completion for a system instruction plus
// user messages.
type CompletionAPI interface {
	StreamCompletion(ctx context.Context, system string, messages []string) (CompletionStream, error)
}

// CompletionClient wraps the OpenAI chat completions endpoint in streaming
// mode. Opening the stream retries on rate limits with the same backoff
// schedule as embeddings; once streaming has begun, errors are terminal.
type CompletionClient struct {
	client *openai.Client
	model  string
	policy retry.Policy
}

// CompletionConfig configures the completion client.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
}

func NewCompletionClient(cfg CompletionConfig) *CompletionClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultCompletionModel
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	return &CompletionClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		policy: retry.Policy{
			MaxAttempts:  attempts,
			InitialDelay: time.Minute / DefaultRequestsPerMinute,
			Multiplier:   2,
		},
	}
}

// StreamCompletion opens a streaming chat completion.
func (c *CompletionClient) StreamCompletion(ctx context.Context, system string, messages []string) (CompletionStream, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: m,
		})
	}

	var stream *openai.ChatCompletionStream
	err := retry.Do(ctx, c.policy, classifyRateLimit, func(ctx context.Context) error {
		s, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: chatMessages,
			Stream:   true,
		})
		if err != nil {
			return translateAPIError(err)
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &chatStream{inner: stream}, nil
}

type chatStream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next delta. Empty deltas (role-only frames, usage frames)
// are skipped so callers only see text.
func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
}

func (s *chatStream) Close() error {
	if s.inner == nil {
		return errors.New("stream not open")
	}
	return s.inner.Close()
}
