package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"verisight-backend/internal/analyses"
)

type stubHistory struct {
	latest analyses.Analysis
	err    error
	asked  string
}

func (s *stubHistory) Latest(_ context.Context, callerID string) (analyses.Analysis, error) {
	s.asked = callerID
	return s.latest, s.err
}

func TestReplyKeywords(t *testing.T) {
	svc := &Service{}
	tests := []struct {
		msg  string
		want string
	}{
		{"What is ELA?", "Error Level Analysis"},
		{"tell me about METADATA", "Metadata forensics"},
		{"deepfake signs", "Deepfake detection"},
		{"spectral stuff", "Spectral analysis"},
		{"how does it work", "Diagnostic Workflow"},
		{"Hello there", "Forensic Terminal Active"},
		{"weather today", "Inquiry not recognized"},
		{"   ", "No signal"},
	}
	for _, tt := range tests {
		got, err := svc.Reply(context.Background(), "", tt.msg)
		if err != nil {
			t.Fatalf("Reply(%q): %v", tt.msg, err)
		}
		if !strings.Contains(got, tt.want) {
			t.Fatalf("Reply(%q) = %q, want substring %q", tt.msg, got, tt.want)
		}
	}
}

func TestReplyHistory(t *testing.T) {
	label, score := "Fake", 12
	history := &stubHistory{latest: analyses.Analysis{FileName: "clip.mp4", AuthenticityLabel: &label, AuthenticityScore: &score}}
	svc := &Service{History: history}
	ctx := context.Background()

	got, _ := svc.Reply(ctx, "", "show my last result")
	if got != replyLoginRequired {
		t.Fatalf("anonymous callers must be asked to log in, got %q", got)
	}

	got, err := svc.Reply(ctx, "user-1", "show my last result")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if history.asked != "user-1" || !strings.Contains(got, "'clip.mp4'") || !strings.Contains(got, "'Fake' with 12% confidence") {
		t.Fatalf("unexpected summary %q", got)
	}

	history.err = analyses.ErrNotFound
	if got, _ := svc.Reply(ctx, "user-1", "history"); got != replyNoHistory {
		t.Fatalf("expected no-history reply, got %q", got)
	}

	history.err = errors.New("db down")
	if _, err := svc.Reply(ctx, "user-1", "previous"); err == nil {
		t.Fatalf("expected error from history lookup")
	}
}
