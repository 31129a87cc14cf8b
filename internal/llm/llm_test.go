package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestUpstreamErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("analyze: %w", NewUpstreamError("gemini", 503, errors.New("unavailable")))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected errors.Is ErrUpstream")
	}
	if !IsTransient(err) {
		t.Fatalf("expected 503 to be transient")
	}
}

func TestIsTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: NewUpstreamError("openai", 429, errors.New("slow down")), want: true},
		{name: "unauthorized", err: NewUpstreamError("openai", 401, errors.New("bad key")), want: false},
		{name: "bad request", err: NewUpstreamError("gemini", 400, errors.New("bad input")), want: false},
		{name: "deadline", err: NewUpstreamError("gemini", 0, context.DeadlineExceeded), want: true},
		{name: "conn refused", err: NewUpstreamError("gemini", 0, &net.OpError{Op: "dial", Err: errors.New("refused")}), want: true},
		{name: "malformed", err: errors.New("invalid json"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPromptNamesKindAndKeys(t *testing.T) {
	p := BuildPrompt("video")
	if !strings.Contains(p, "Analyze this video file") {
		t.Fatalf("prompt missing kind: %s", p)
	}
	for _, key := range []string{"sentiment_score", "sentiment_label", "authenticity_score", "authenticity_label", "reasoning"} {
		if !strings.Contains(p, key) {
			t.Fatalf("prompt missing key %s", key)
		}
	}
}

func TestPlaceholderClientFailsUpstream(t *testing.T) {
	_, err := PlaceholderClient{}.Analyze(context.Background(), MediaInput{})
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected upstream not-configured error, got %v", err)
	}
}
