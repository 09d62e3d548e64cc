package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

const codeInternal = "internal_error"

// domainStatus maps FAQ error codes onto response statuses. Codes not listed
// render as 500 internal_error.
var domainStatus = map[string]int{
	faq.CodeInvalidInput:    http.StatusBadRequest,
	faq.CodeMappingNotFound: http.StatusInternalServerError,
	faq.CodeRecordNotFound:  http.StatusInternalServerError,
	faq.CodeEmbedding:       http.StatusInternalServerError,
	faq.CodeIndex:           http.StatusInternalServerError,
	faq.CodeStorage:         http.StatusInternalServerError,
	faq.CodeLLM:             http.StatusBadGateway,
	faq.CodeLLMTimeout:      http.StatusGatewayTimeout,
}

// HTTPError is the response shape of a failed request: {"error":{"code","message"}}.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError for transport-level failures.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError translates a service error using its AppError code.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, known := domainStatus[code]
	if !known {
		return &HTTPError{Status: http.StatusInternalServerError, Code: codeInternal, Message: err.Error(), Err: err}
	}
	return &HTTPError{Status: status, Code: code, Message: err.Error(), Err: err}
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if apperrors.CodeOf(err) != "" {
		return fromDomainError(err)
	}
	return &HTTPError{Status: http.StatusInternalServerError, Code: codeInternal, Message: "something went wrong", Err: err}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	_ = c.Error(err)
	c.Abort()
}
