package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/adapters/bedrock"
	"github.com/mailwatch/phishfilter/internal/adapters/gemini"
	"github.com/mailwatch/phishfilter/internal/adapters/openai"
	"github.com/mailwatch/phishfilter/internal/config"
	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/opinion"
)

// OpinionFactory creates the remote-opinion provider for the configured
// LLM backend.
type OpinionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpinionFactory creates a new opinion factory.
func NewOpinionFactory(cfg *config.Config, logger *zap.Logger) *OpinionFactory {
	return &OpinionFactory{cfg: cfg, logger: logger}
}

// CreateOpinionProvider builds the completer for the configured provider
// and wraps it in the opinion client.
func (f *OpinionFactory) CreateOpinionProvider() (core.OpinionProvider, error) {
	completer, err := f.createCompleter()
	if err != nil {
		return nil, err
	}

	llmCfg := f.cfg.GetLLM()
	return opinion.NewClient(completer, f.logger, llmCfg.MaxBodySize), nil
}

func (f *OpinionFactory) createCompleter() (opinion.TextCompleter, error) {
	llmCfg := f.cfg.GetLLM()

	switch llmCfg.Provider {
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		return gemini.NewCompleter(
			geminiCfg.APIKey,
			geminiCfg.ModelCandidates,
			geminiCfg.MaxTokens,
			geminiCfg.Temperature,
			geminiCfg.TopP,
			f.logger,
		)
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		return openai.NewCompleter(
			openaiCfg.APIKey,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			f.logger,
		)
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		return bedrock.NewCompleter(
			context.Background(),
			bedrockCfg.Region,
			bedrockCfg.ModelID,
			bedrockCfg.MaxTokens,
			bedrockCfg.Temperature,
			bedrockCfg.TopP,
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}
}
