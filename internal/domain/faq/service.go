package faq

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// Service exposes FAQ answering capabilities.
type Service interface {
	Answer(ctx context.Context, question string) (string, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)
}

type service struct {
	cfg       Config
	retriever *Retriever
	generator AnswerGenerator
	trending  TrendingStore
	tokens    TokenCounter
	logger    *slog.Logger
}

// NewService wires up the FAQ domain. trending and tokens may be nil.
func NewService(cfg Config, retriever *Retriever, generator AnswerGenerator, trending TrendingStore, tokens TokenCounter, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		trending:  trending,
		tokens:    tokens,
		logger:    logger.With("component", "faq.service"),
	}
}

func (s *service) Answer(ctx context.Context, question string) (string, error) {
	start := time.Now()
	query, err := prepareQuery(question, s.cfg.MinQueryLength, s.cfg.MaxQueryLength)
	if err != nil {
		return "", err
	}

	candidates, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		s.logger.Info("no faq candidates within threshold", "query", query, "duration_ms", time.Since(start).Milliseconds())
		return s.cfg.FallbackAnswer, nil
	}

	contextText := BuildContext(candidates, s.cfg.ContextLimit)
	if s.tokens != nil {
		s.logger.Debug("context assembled", "candidates", len(candidates), "chars", len(contextText), "tokens", s.tokens.CountTokens(contextText))
	}

	answer, err := s.generate(ctx, query, contextText)
	if err != nil {
		return "", err
	}

	s.recordQuery(ctx, question)
	s.logger.Info("faq answered",
		"query", query,
		"candidates", len(candidates),
		"answer_len", len(answer),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	if s.trending == nil {
		return []TrendingQuery{}, nil
	}
	recs, err := s.trending.TopQueries(ctx, s.cfg.TopRecommendations)
	if err != nil {
		return nil, apperrors.Wrap(CodeStorage, "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) generate(ctx context.Context, query, contextText string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: s.cfg.Prompt},
		{Role: RoleUser, Content: userMessage(contextText, query)},
	}

	genCtx := ctx
	if s.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerateTimeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.generator.Generate(genCtx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", apperrors.Wrap(CodeLLMTimeout, "answer generation timed out", err)
		}
		if apperrors.CodeOf(err) != "" {
			return "", err
		}
		return "", apperrors.Wrap(CodeLLM, "answer generation failed", err)
	}
	s.logger.Debug("answer generated", "duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}

func (s *service) recordQuery(ctx context.Context, question string) {
	if s.trending == nil {
		return
	}
	display := strings.TrimSpace(question)
	if err := s.trending.IncrementQuery(ctx, normalizeQuestion(display), display); err != nil {
		s.logger.Warn("faq trending increment failed", "error", err)
	}
}

func userMessage(contextText, query string) string {
	return "Context:\n" + contextText + "\n\nQuestion: " + query + "\nAnswer:"
}
