package analyses

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Verdict is the validated model answer for one media file.
type Verdict struct {
	SentimentScore    int
	SentimentLabel    string
	AuthenticityScore int
	AuthenticityLabel string
	Details           Details
}

type rawDetails struct {
	Transcript      string           `json:"transcript"`
	DetectedFaces   *int             `json:"detected_faces"`
	VisualCues      []string         `json:"visual_cues"`
	AudioCues       []string         `json:"audio_cues"`
	AudioFeatures   []string         `json:"audio_features"`
	FrameSentiments []FrameSentiment `json:"frame_sentiments"`
}

var (
	sentimentLabels    = map[string]string{"positive": SentimentPositive, "negative": SentimentNegative, "neutral": SentimentNeutral}
	authenticityLabels = map[string]string{"real": AuthenticityReal, "fake": AuthenticityFake}
)

// ParseVerdict decodes and validates the model's JSON answer. Every required key must be
// present with the right type; nothing is defaulted.
func ParseVerdict(raw []byte) (Verdict, error) {
	body := stripCodeFence(raw)
	if len(body) == 0 {
		return Verdict{}, malformed("empty body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Verdict{}, malformed("not a JSON object: %v", err)
	}

	var v Verdict
	var err error
	if v.SentimentScore, err = scoreField(fields, "sentiment_score"); err != nil {
		return Verdict{}, err
	}
	if v.SentimentLabel, err = labelField(fields, "sentiment_label", sentimentLabels); err != nil {
		return Verdict{}, err
	}
	if v.AuthenticityScore, err = scoreField(fields, "authenticity_score"); err != nil {
		return Verdict{}, err
	}
	if v.AuthenticityLabel, err = labelField(fields, "authenticity_label", authenticityLabels); err != nil {
		return Verdict{}, err
	}
	reasoning, err := stringField(fields, "reasoning")
	if err != nil {
		return Verdict{}, err
	}

	var details rawDetails
	if rawDet, ok := fields["details"]; ok && !isNull(rawDet) {
		if err := json.Unmarshal(rawDet, &details); err != nil {
			return Verdict{}, malformed("details: %v", err)
		}
	}
	v.Details = Details{
		Reasoning:       reasoning,
		Transcript:      details.Transcript,
		DetectedFaces:   details.DetectedFaces,
		VisualCues:      details.VisualCues,
		AudioCues:       details.AudioCues,
		AudioFeatures:   details.AudioFeatures,
		FrameSentiments: details.FrameSentiments,
	}
	return v, nil
}

func scoreField(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return 0, malformed("missing %s", key)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, malformed("%s is not a number", key)
	}
	if f < 0 || f > 100 {
		return 0, malformed("%s out of range: %v", key, f)
	}
	return int(math.Round(f)), nil
}

func labelField(fields map[string]json.RawMessage, key string, allowed map[string]string) (string, error) {
	s, err := stringField(fields, key)
	if err != nil {
		return "", err
	}
	label, ok := allowed[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", malformed("unknown %s %q", key, s)
	}
	return label, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", malformed("missing %s", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("%s is not a string", key)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Some models wrap JSON mode output in a markdown fence.
func stripCodeFence(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	body = bytes.TrimPrefix(body, []byte("```"))
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = bytes.TrimSuffix(bytes.TrimSpace(body), []byte("```"))
	return bytes.TrimSpace(body)
}
