// Package gemini implements the remote-opinion completer on Google Gemini,
// the default provider.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Completer sends a prompt to Gemini and returns the complete reply text.
// Model candidates are tried in order; the first one that answers is
// cached for the rest of the session.
type Completer struct {
	client      *genai.Client
	candidates  []string
	working     atomic.Int32
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewCompleter creates a new Gemini completer. candidates must be a
// non-empty ordered list of model names to try.
func NewCompleter(
	apiKey string,
	candidates []string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("at least one gemini model candidate is required")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Completer{
		client:      client,
		candidates:  candidates,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

// Close closes the underlying Gemini client.
func (c *Completer) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete sends one prompt. Starting from the last known-working model,
// each candidate gets a single attempt; there is no retry loop beyond the
// fallback list itself.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	start := int(c.working.Load())
	var lastErr error

	for i := start; i < len(c.candidates); i++ {
		name := c.candidates[i]
		model := c.client.GenerativeModel(name)
		model.SetMaxOutputTokens(int32(c.maxTokens))
		model.SetTemperature(c.temperature)
		model.SetTopP(c.topP)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("model %s: %w", name, err)
			c.logger.Warn("Gemini model failed, trying next candidate",
				zap.String("model", name),
				zap.Error(err))
			continue
		}

		text := extractText(resp)
		if text == "" {
			lastErr = fmt.Errorf("model %s: empty response", name)
			continue
		}

		if i != start {
			c.logger.Info("Switched Gemini model for this session",
				zap.String("model", name))
		}
		c.working.Store(int32(i))
		return text, nil
	}

	return "", fmt.Errorf("all Gemini model candidates failed: %w", lastErr)
}

// extractText joins the text parts of the first candidate reply.
func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
