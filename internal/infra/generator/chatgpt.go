package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
	"github.com/yanqian/faq-rag/pkg/metrics"
)

const maxBackoff = 5 * time.Second

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Options configures the model call and its retry policy.
type Options struct {
	Model       string
	Temperature float32
	MaxAttempts int
	BaseBackoff time.Duration
}

// ChatGPTGenerator adapts the ChatGPT client to the FAQ answer generator.
type ChatGPTGenerator struct {
	client chatClient
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewChatGPTGenerator constructs the adapter.
func NewChatGPTGenerator(client chatClient, opts Options, logger *slog.Logger) *ChatGPTGenerator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &ChatGPTGenerator{
		client: client,
		opts:   opts,
		logger: logger.With("component", "generator.chatgpt"),
		sleep:  sleepContext,
	}
}

// Generate sends the messages and returns the first choice unmodified.
// Rate limits and server errors are retried with exponential backoff.
func (g *ChatGPTGenerator) Generate(ctx context.Context, messages []faq.Message) (string, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		Messages:    make([]chatgpt.Message, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, chatgpt.Message{Role: msg.Role, Content: msg.Content})
	}

	var lastErr error
	for attempt := 0; attempt < g.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.retryDelay(attempt - 1)
			g.logger.Warn("retrying chat completion", "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", lastErr)
			if err := g.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			lastErr = err
			if chatgpt.IsRetryable(err) {
				continue
			}
			return "", apperrors.Wrap(faq.CodeLLM, "chatgpt request failed", err)
		}
		if len(resp.Choices) == 0 {
			return "", apperrors.Wrap(faq.CodeLLM, "chatgpt returned no choices", errors.New("empty choices"))
		}
		usage := metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		if !usage.IsZero() {
			g.logger.Debug("chat completion usage", "attempt", attempt+1, "tokens", usage)
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", apperrors.Wrap(faq.CodeLLM, "chatgpt request failed after retries", lastErr)
}

func (g *ChatGPTGenerator) retryDelay(attempt int) time.Duration {
	base := g.opts.BaseBackoff
	if base <= 0 {
		return 0
	}
	d := base << attempt
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ faq.AnswerGenerator = (*ChatGPTGenerator)(nil)
