// Package gemini wraps the Google genai SDK behind a minimal interface so
// callers can substitute a mock in tests.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/gyeongnam-biz/collector-cli/internal/resilience"
)

// Client defines the Gemini API operations used by the classifier.
type Client interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// sdkClient implements Client using the official genai SDK.
type sdkClient struct {
	client *genai.Client
	retry  resilience.RetryConfig
}

// NewClient creates a new Gemini client backed by the SDK.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("gemini", "generate")
	return &sdkClient{client: client, retry: retry}, nil
}

// GenerateText sends a single-turn prompt and returns the response text.
func (c *sdkClient) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil && isRetryable(err) {
			return nil, resilience.MarkTransient(err)
		}
		return resp, err
	})
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("gemini: generate content with %s", model))
	}

	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("gemini: empty response from %s", model)
	}
	return text, nil
}

// isRetryable reports whether an SDK error indicates rate limiting or a
// temporary server-side failure.
func isRetryable(err error) bool {
	msg := err.Error()
	for _, pattern := range []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE", "INTERNAL", "Error 429", "Error 500", "Error 503"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
