// Package openai implements the remote-opinion completer on the OpenAI
// chat-completion API.
package openai

import (
	"context"
	"fmt"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "You are a phishing detection system. Respond only with JSON."

// profile is one capability configuration for the chat call. Profiles are
// tried in order; not every model accepts a forced JSON response format.
type profile struct {
	name       string
	jsonFormat bool
}

var profiles = []profile{
	{name: "json-object", jsonFormat: true},
	{name: "plain", jsonFormat: false},
}

// Completer sends a prompt to OpenAI and returns the complete reply text.
// The first capability profile that succeeds is cached for the session.
type Completer struct {
	client      *openai.Client
	modelName   string
	working     atomic.Int32
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewCompleter creates a new OpenAI completer.
func NewCompleter(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return &Completer{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

// Complete sends one prompt, negotiating down through the capability
// profiles on failure.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	start := int(c.working.Load())
	var lastErr error

	for i := start; i < len(profiles); i++ {
		p := profiles[i]
		req := openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			TopP:        c.topP,
		}
		if p.jsonFormat {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("profile %s: %w", p.name, err)
			c.logger.Warn("OpenAI chat completion failed, trying next profile",
				zap.String("profile", p.name),
				zap.Error(err))
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("profile %s: empty response", p.name)
			continue
		}

		if i != start {
			c.logger.Info("Switched OpenAI capability profile for this session",
				zap.String("profile", p.name))
		}
		c.working.Store(int32(i))
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("all OpenAI capability profiles failed: %w", lastErr)
}
