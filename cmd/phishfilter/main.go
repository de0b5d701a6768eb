package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/adapters/mailin"
	"github.com/mailwatch/phishfilter/internal/config"
	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/di"
	"github.com/mailwatch/phishfilter/internal/logging"
)

var (
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	retrain   = flag.Bool("retrain", false, "Retrain the classifier and exit")
	status    = flag.Bool("status", false, "Print classifier status and exit")

	provider  = flag.String("provider", "", "Override LLM provider (gemini, openai, bedrock)")
	storeType = flag.String("store", "", "Override result store (sqlite, mysql, memory)")

	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *provider != "" {
		cfg.GetViper().Set("llm.provider", *provider)
	}
	if *storeType != "" {
		cfg.GetViper().Set("store.type", *storeType)
	}

	container, err := di.BuildContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build dependency container", zap.Error(err))
	}

	if err := container.Invoke(run); err != nil {
		logger.Fatal("Application error", zap.Error(err))
	}
}

func run(service *core.AnalysisService, logger *zap.Logger) error {
	ctx := context.Background()

	switch {
	case *retrain:
		return runRetrain(ctx, service)
	case *status:
		return runStatus(ctx, service)
	default:
		return runAnalyze(ctx, service, logger)
	}
}

func runRetrain(ctx context.Context, service *core.AnalysisService) error {
	metrics, err := service.Retrain(ctx)
	if err != nil {
		return fmt.Errorf("retrain failed: %w", err)
	}

	fmt.Printf("=== Training Complete ===\n")
	fmt.Printf("Samples:   %d\n", metrics.Samples)
	fmt.Printf("Accuracy:  %.4f\n", metrics.Accuracy)
	fmt.Printf("F1 score:  %.4f\n", metrics.F1)
	fmt.Printf("Precision: %.4f\n", metrics.Precision)
	fmt.Printf("Recall:    %.4f\n", metrics.Recall)
	return nil
}

func runStatus(ctx context.Context, service *core.AnalysisService) error {
	modelStatus, err := service.Status(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	out, err := json.MarshalIndent(modelStatus, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAnalyze(ctx context.Context, service *core.AnalysisService, logger *zap.Logger) error {
	var reader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	sig, err := mailin.ParseMessage(reader)
	if err != nil {
		return err
	}

	result, err := service.Analyze(ctx, sig)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Analysis Result ===\n")
	fmt.Printf("Email ID:         %s\n", result.EmailID)
	fmt.Printf("Is phishing:      %t\n", result.IsPhishing)
	fmt.Printf("Phishing score:   %.1f\n", result.PhishingScore)
	fmt.Printf("Detection method: %s\n", result.DetectionMethod)
	if result.Rules != nil {
		for _, indicator := range result.Rules.Indicators {
			fmt.Printf("  - %s\n", indicator)
		}
	}
	if *verbose {
		out, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			fmt.Printf("\n%s\n", string(out))
		}
	}

	return nil
}
