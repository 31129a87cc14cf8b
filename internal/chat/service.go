package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"verisight-backend/internal/analyses"
)

const (
	replyLoginRequired = "Please log in to the forensic terminal to access your analysis history."
	replyNoHistory     = "No clinical history found. Please upload a specimen for analysis first."
	replyWorkflow      = "Diagnostic Workflow: We utilize a multi-layered verification stack (ELA, Spectral, and Metadata) to detect generative artifacts."
	replyGreeting      = "Forensic Terminal Active. State your inquiry regarding digital integrity or specimen analysis."
	replyFallback      = "Inquiry not recognized. I am optimized for forensic diagnostic questions. Try asking about 'ELA', 'Metadata Analysis', or 'Your recent results'."
	replyNoSignal      = "System Error: No signal received."
)

type topic struct {
	keyword string
	reply   string
}

// Checked in order; the first keyword contained in the message wins.
var knowledgeBase = []topic{
	{"ela", "Error Level Analysis (ELA) identifies areas within an image that are at different compression levels. In AI-generated images, this often reveals inconsistencies in pixel density."},
	{"metadata", "Metadata forensics involves scrutinizing EXIF data, XMP tags, and ICC profiles for signatures left by generative AI models or editing software."},
	{"deepfake", "Deepfake detection looks for frequency anomalies in audio-visual streams, such as unnatural blinking, inconsistent lighting, or phase shifts in vocal patterns."},
	{"spectral", "Spectral analysis in audio identifies 'checkerboard artifacts', unnatural frequency gaps introduced by GANs during the synthesis process."},
}

var historyWords = []string{"result", "previous", "last", "history"}

// LatestFinder returns the caller's newest analysis.
type LatestFinder interface {
	Latest(ctx context.Context, callerID string) (analyses.Analysis, error)
}

// Service answers assistant messages from a fixed knowledge base and the caller's history.
type Service struct {
	History LatestFinder
}

// Reply picks the answer for a message. callerID may be empty for anonymous callers.
func (s *Service) Reply(ctx context.Context, callerID, message string) (string, error) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return replyNoSignal, nil
	}

	if containsAny(msg, historyWords...) {
		return s.historyReply(ctx, callerID)
	}
	for _, t := range knowledgeBase {
		if strings.Contains(msg, t.keyword) {
			return t.reply, nil
		}
	}
	if containsAny(msg, "how", "process") {
		return replyWorkflow, nil
	}
	if containsAny(msg, "hello", "hi") {
		return replyGreeting, nil
	}
	return replyFallback, nil
}

func (s *Service) historyReply(ctx context.Context, callerID string) (string, error) {
	if callerID == "" || s.History == nil {
		return replyLoginRequired, nil
	}
	last, err := s.History.Latest(ctx, callerID)
	if errors.Is(err, analyses.ErrNotFound) {
		return replyNoHistory, nil
	}
	if err != nil {
		return "", fmt.Errorf("latest analysis: %w", err)
	}
	return fmt.Sprintf(
		"SYSTEM LOG: Your most recent analysis for '%s' returned a classification of '%s' with %s%% confidence. You can view the full diagnostic at the laboratory terminal.",
		last.FileName, deref(last.AuthenticityLabel, "Unknown"), scoreText(last.AuthenticityScore),
	), nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func deref(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func scoreText(p *int) string {
	if p == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *p)
}
