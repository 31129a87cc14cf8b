package analyses

import (
	"strconv"
	"time"
)

// Media kinds accepted for analysis.
const (
	KindImage = "image"
	KindAudio = "audio"
	KindVideo = "video"
	KindText  = "text"
)

// Labels produced by the model after normalization.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"

	AuthenticityReal = "Real"
	AuthenticityFake = "Fake"
)

// ValidKind reports whether kind is one of the accepted media kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindImage, KindAudio, KindVideo, KindText:
		return true
	}
	return false
}

// Analysis is the persisted outcome of one upload. Records are never updated.
type Analysis struct {
	ID                int64     `json:"id"`
	OwnerID           string    `json:"userId"`
	FileName          string    `json:"fileName"`
	FileURL           string    `json:"fileUrl"`
	FileType          string    `json:"fileType"`
	MIMEType          string    `json:"mimeType"`
	SentimentLabel    *string   `json:"sentimentLabel"`
	SentimentScore    *int      `json:"sentimentScore"`
	AuthenticityLabel *string   `json:"authenticityLabel"`
	AuthenticityScore *int      `json:"authenticityScore"`
	Details           Details   `json:"details"`
	CreatedAt         time.Time `json:"createdAt"`

	// StorageKey locates the content in an object store. Empty for inline records.
	StorageKey string `json:"-"`
}

// Details carries the model's reasoning and optional evidence.
type Details struct {
	Reasoning       string           `json:"reasoning"`
	Transcript      string           `json:"transcript,omitempty"`
	DetectedFaces   *int             `json:"detectedFaces,omitempty"`
	VisualCues      []string         `json:"visualCues,omitempty"`
	AudioCues       []string         `json:"audioCues,omitempty"`
	AudioFeatures   []string         `json:"audioFeatures,omitempty"`
	FrameSentiments []FrameSentiment `json:"frameSentiments,omitempty"`
}

// FrameSentiment is the sentiment observed at a point in a video.
type FrameSentiment struct {
	Time  float64 `json:"time"`
	Label string  `json:"label"`
}

// ContentPath is the endpoint serving an analysis' stored bytes.
func ContentPath(id int64) string {
	return "/api/analysis/" + strconv.FormatInt(id, 10) + "/content"
}
