package llm

import "fmt"

const promptTemplate = `Analyze this %s file for sentiment and authenticity.
Determine if it is Real or Fake/Deepfake.
Provide a sentiment score (0-100) and label (Positive/Negative/Neutral).
Provide an authenticity score (0-100, where 100 is definitely Real, 0 is definitely Fake) and label (Real/Fake).
Provide detailed reasoning for your decision, citing specific visual or audio cues if possible.

Return ONLY a JSON object with this structure:
{
  "sentiment_score": number,
  "sentiment_label": string,
  "authenticity_score": number,
  "authenticity_label": string,
  "reasoning": string,
  "details": {
    "transcript": string (if audio/video),
    "visual_cues": string[] (if image/video),
    "audio_cues": string[] (if audio/video)
  }
}`

// BuildPrompt returns the instruction sent with every media file.
func BuildPrompt(kind string) string {
	return fmt.Sprintf(promptTemplate, kind)
}
