package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

type scriptedClient struct {
	errs    []error
	answer  string
	calls   int
	lastReq chatgpt.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return chatgpt.ChatCompletionResponse{}, err
		}
	}
	var resp chatgpt.ChatCompletionResponse
	if c.answer != "" {
		resp.Choices = append(resp.Choices, struct {
			Message      chatgpt.Message `json:"message"`
			FinishReason string          `json:"finish_reason"`
		}{Message: chatgpt.Message{Role: "assistant", Content: c.answer}})
	}
	return resp, nil
}

func newTestGenerator(client *scriptedClient, attempts int) (*ChatGPTGenerator, *[]time.Duration) {
	g := NewChatGPTGenerator(client, Options{Model: "gpt-test", MaxAttempts: attempts, BaseBackoff: 100 * time.Millisecond},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	var delays []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return g, &delays
}

var messages = []faq.Message{
	{Role: faq.RoleSystem, Content: "sys"},
	{Role: faq.RoleUser, Content: "Context:\n\n\nQuestion: hi\nAnswer:"},
}

func TestGenerateReturnsContentVerbatim(t *testing.T) {
	client := &scriptedClient{answer: " Parks open at 9am. \n"}
	g, _ := newTestGenerator(client, 3)

	got, err := g.Generate(context.Background(), messages)
	require.NoError(t, err)
	require.Equal(t, " Parks open at 9am. \n", got)
	require.Equal(t, "gpt-test", client.lastReq.Model)
	require.Len(t, client.lastReq.Messages, 2)
	require.Equal(t, "system", client.lastReq.Messages[0].Role)
}

func TestGenerateRetriesRetryableStatus(t *testing.T) {
	client := &scriptedClient{
		errs: []error{
			&chatgpt.APIError{StatusCode: http.StatusTooManyRequests},
			&chatgpt.APIError{StatusCode: http.StatusServiceUnavailable},
		},
		answer: "ok",
	}
	g, delays := newTestGenerator(client, 3)

	got, err := g.Generate(context.Background(), messages)
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, client.calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	client := &scriptedClient{errs: []error{
		&chatgpt.APIError{StatusCode: http.StatusBadGateway},
		&chatgpt.APIError{StatusCode: http.StatusBadGateway},
	}}
	g, _ := newTestGenerator(client, 2)

	_, err := g.Generate(context.Background(), messages)
	require.True(t, apperrors.IsCode(err, faq.CodeLLM))
	require.Equal(t, 2, client.calls)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	client := &scriptedClient{errs: []error{&chatgpt.APIError{StatusCode: http.StatusBadRequest}}}
	g, delays := newTestGenerator(client, 5)

	_, err := g.Generate(context.Background(), messages)
	require.True(t, apperrors.IsCode(err, faq.CodeLLM))
	require.Equal(t, 1, client.calls)
	require.Empty(t, *delays)
}

func TestGenerateEmptyChoices(t *testing.T) {
	g, _ := newTestGenerator(&scriptedClient{}, 1)
	_, err := g.Generate(context.Background(), messages)
	require.True(t, apperrors.IsCode(err, faq.CodeLLM))
}

func TestGenerateSurfacesDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	client := &scriptedClient{errs: []error{errors.New("request /chat/completions: context deadline exceeded")}}
	g, _ := newTestGenerator(client, 3)

	_, err := g.Generate(ctx, messages)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, client.calls)
}

func TestRetryDelayIsCapped(t *testing.T) {
	g, _ := newTestGenerator(&scriptedClient{}, 1)
	require.Equal(t, 100*time.Millisecond, g.retryDelay(0))
	require.Equal(t, 400*time.Millisecond, g.retryDelay(2))
	require.Equal(t, maxBackoff, g.retryDelay(10))
}
