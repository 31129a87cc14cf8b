package analyses

import (
	"context"
	"encoding/json"
	"time"

	"verisight-backend/internal/llm"
	"verisight-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 500 * time.Millisecond

// retryingLLM retries a model call at most once, and only for transient failures.
type retryingLLM struct {
	base      llm.Client
	retries   int
	delay     time.Duration
	requestID string
}

func newRetryingLLM(base llm.Client, retries int, requestID string) llm.Client {
	if base == nil || retries <= 0 {
		return base
	}
	if retries > 1 {
		retries = 1
	}
	return retryingLLM{
		base:      base,
		retries:   retries,
		delay:     llmRetryBaseDelay,
		requestID: requestID,
	}
}

func (r retryingLLM) Analyze(ctx context.Context, input llm.MediaInput) (json.RawMessage, error) {
	resp, err := r.base.Analyze(ctx, input)
	for attempt := 1; attempt <= r.retries; attempt++ {
		if err == nil || !llm.IsTransient(err) || ctx.Err() != nil {
			return resp, err
		}
		telemetry.Warn("llm.retry", map[string]any{
			"request_id": r.requestID,
			"attempt":    attempt,
			"kind":       input.Kind,
			"error":      err.Error(),
		})
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		resp, err = r.base.Analyze(ctx, input)
	}
	return resp, err
}
