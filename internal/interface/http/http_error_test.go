package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

func TestFromDomainError(t *testing.T) {
	cases := []struct {
		code   string
		status int
		want   string
	}{
		{faq.CodeInvalidInput, http.StatusBadRequest, faq.CodeInvalidInput},
		{faq.CodeMappingNotFound, http.StatusInternalServerError, faq.CodeMappingNotFound},
		{faq.CodeRecordNotFound, http.StatusInternalServerError, faq.CodeRecordNotFound},
		{faq.CodeEmbedding, http.StatusInternalServerError, faq.CodeEmbedding},
		{faq.CodeIndex, http.StatusInternalServerError, faq.CodeIndex},
		{faq.CodeStorage, http.StatusInternalServerError, faq.CodeStorage},
		{faq.CodeLLM, http.StatusBadGateway, faq.CodeLLM},
		{faq.CodeLLMTimeout, http.StatusGatewayTimeout, faq.CodeLLMTimeout},
		{"something_new", http.StatusInternalServerError, codeInternal},
	}
	for _, tc := range cases {
		err := fmt.Errorf("answer: %w", apperrors.Wrap(tc.code, "boom", errors.New("cause")))
		got := fromDomainError(err)
		require.Equal(t, tc.status, got.Status, tc.code)
		require.Equal(t, tc.want, got.Code, tc.code)
		require.ErrorIs(t, got, err)
	}
}

func TestAsHTTPError(t *testing.T) {
	explicit := NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil)
	require.Same(t, explicit, asHTTPError(fmt.Errorf("wrapped: %w", explicit)))

	coded := asHTTPError(apperrors.Wrap(faq.CodeLLMTimeout, "slow", nil))
	require.Equal(t, http.StatusGatewayTimeout, coded.Status)

	unknown := asHTTPError(errors.New("kaboom"))
	require.Equal(t, http.StatusInternalServerError, unknown.Status)
	require.Equal(t, codeInternal, unknown.Code)
	require.Equal(t, "something went wrong", unknown.Message)
}
