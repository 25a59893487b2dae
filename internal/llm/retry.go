package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

// RetryingProvider retries rate-limit and timeout failures with
// exponential backoff. Other failures pass through untouched so callers
// can react to them immediately.
type RetryingProvider struct {
	provider    Provider
	maxAttempts uint64
}

// NewRetryingProvider wraps provider with bounded exponential backoff.
func NewRetryingProvider(provider Provider, maxAttempts int) Provider {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &RetryingProvider{provider: provider, maxAttempts: uint64(maxAttempts)}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp *CompletionResponse

	op := func() error {
		var err error
		resp, err = r.provider.Complete(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("llm call failed, retrying", "provider", r.provider.Name(), "err", err)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.maxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// IsRetryable reports whether err looks like a transient rate-limit or
// timeout condition.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
