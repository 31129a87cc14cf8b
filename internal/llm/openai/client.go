package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"verisight-backend/internal/llm"
)

const providerName = "openai"

// Client implements llm.Client using OpenAI Chat Completions. Only image and text
// content can be sent inline.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs a new OpenAI client. baseURL may be empty for the public API.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

// Analyze sends the instruction and content and returns the JSON object text.
func (c *Client) Analyze(ctx context.Context, input llm.MediaInput) (json.RawMessage, error) {
	msg, err := buildMessage(input)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []goopenai.ChatCompletionMessage{msg},
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, llm.ErrEmptyResponse
	}
	return json.RawMessage(content), nil
}

func buildMessage(input llm.MediaInput) (goopenai.ChatCompletionMessage, error) {
	prompt := llm.BuildPrompt(input.Kind)
	switch input.Kind {
	case "text":
		return goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: prompt + "\n\nContent to analyze:\n" + string(input.Content),
		}, nil
	case "image":
		dataURL := "data:" + input.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(input.Content)
		return goopenai.ChatCompletionMessage{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: goopenai.ImageURLDetailAuto,
				}},
			},
		}, nil
	default:
		return goopenai.ChatCompletionMessage{}, &llm.UpstreamError{
			Provider: providerName,
			Err:      fmt.Errorf("%w: %s", llm.ErrUnsupportedKind, input.Kind),
		}
	}
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewUpstreamError(providerName, apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewUpstreamError(providerName, reqErr.HTTPStatusCode, err)
	}
	return llm.NewUpstreamError(providerName, 0, err)
}
