package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"verisight-backend/internal/llm"
)

const providerName = "gemini"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	gen     generator
	model   string
	timeout time.Duration
	close   func() error
}

// NewClient dials the Gemini API with an API key.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	gm := gc.GenerativeModel(model)
	gm.ResponseMIMEType = "application/json"
	gm.SetTemperature(0)

	return &Client{gen: gm, model: model, timeout: timeout, close: gc.Close}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Analyze sends the instruction and the inline media and returns the model's JSON text.
func (c *Client) Analyze(ctx context.Context, input llm.MediaInput) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.gen.GenerateContent(ctx,
		genai.Text(llm.BuildPrompt(input.Kind)),
		genai.Blob{MIMEType: input.MIMEType, Data: input.Content},
	)
	if err != nil {
		return nil, classify(err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}
	return json.RawMessage(text), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return llm.NewUpstreamError(providerName, apiErr.Code, err)
	}
	return llm.NewUpstreamError(providerName, 0, err)
}
