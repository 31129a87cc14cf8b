package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"verisight-backend/internal/llm"
	"verisight-backend/internal/shared/telemetry"
)

type scriptedLLM struct {
	results []scriptedResult
	calls   int
	inputs  []llm.MediaInput
}

type scriptedResult struct {
	raw string
	err error
}

func (s *scriptedLLM) Analyze(_ context.Context, input llm.MediaInput) (json.RawMessage, error) {
	s.inputs = append(s.inputs, input)
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

func TestRetryOnTransientFailureSucceeds(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	base := &scriptedLLM{results: []scriptedResult{
		{err: llm.NewUpstreamError("gemini", 503, errors.New("overloaded"))},
		{raw: `{"ok":true}`},
	}}
	client := newRetryingLLM(base, 1, "req-1").(retryingLLM)
	client.delay = 0

	raw, err := client.Analyze(context.Background(), llm.MediaInput{Kind: KindImage})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if string(raw) != `{"ok":true}` || base.calls != 2 {
		t.Fatalf("expected success on second call, got %s after %d calls", raw, base.calls)
	}
}

func TestRetryStopsAfterOneAttempt(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	base := &scriptedLLM{results: []scriptedResult{
		{err: llm.NewUpstreamError("gemini", 500, errors.New("boom"))},
	}}
	client := newRetryingLLM(base, 5, "req-1").(retryingLLM)
	client.delay = 0

	if _, err := client.Analyze(context.Background(), llm.MediaInput{}); !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", base.calls)
	}
}

func TestNoRetryOnPermanentFailure(t *testing.T) {
	base := &scriptedLLM{results: []scriptedResult{
		{err: llm.NewUpstreamError("openai", 401, errors.New("bad key"))},
	}}
	client := newRetryingLLM(base, 1, "")

	if _, err := client.Analyze(context.Background(), llm.MediaInput{}); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected a single call, got %d", base.calls)
	}
}

func TestNoRetryWhenDisabled(t *testing.T) {
	base := &scriptedLLM{results: []scriptedResult{{err: llm.ErrEmptyResponse}}}
	if got := newRetryingLLM(base, 0, ""); got != llm.Client(base) {
		t.Fatalf("expected base client when retries are disabled")
	}
}
