package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyInput is returned when there is nothing to send to the model
	ErrEmptyInput = errors.New("empty input")

	// ErrMalformedOutput is returned when a model response cannot be decoded
	ErrMalformedOutput = errors.New("malformed model output")
)

// ExtractionError reports a failed claim extraction
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("claim extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// QueryGenerationError reports a failed query generation for one claim
type QueryGenerationError struct {
	ClaimID string
	Err     error
}

func (e *QueryGenerationError) Error() string {
	return fmt.Sprintf("query generation for claim %s failed: %v", e.ClaimID, e.Err)
}

func (e *QueryGenerationError) Unwrap() error { return e.Err }

// JudgmentError reports a failed evidence judgment. Callers record NEUTRAL instead.
type JudgmentError struct {
	ClaimID    string
	PassageRef string
	Err        error
}

func (e *JudgmentError) Error() string {
	return fmt.Sprintf("judgment of %s for claim %s failed: %v", e.PassageRef, e.ClaimID, e.Err)
}

func (e *JudgmentError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from a provider API
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether err is transient: timeouts, rate limits,
// server errors and dropped connections. Malformed output is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedOutput) || errors.Is(err, ErrEmptyInput) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return retryableStatus(ollamaErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "eof")
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
