package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/config"
	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/factory"
	"github.com/mailwatch/phishfilter/internal/ml"
	"github.com/mailwatch/phishfilter/internal/rules"
)

// BuildContainer creates and configures a dependency injection container
// for the analysis pipeline. Config and logger are built by the caller so
// command-line overrides apply before anything is constructed.
func BuildContainer(cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func() *zap.Logger { return logger }); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewOpinionFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register remote-opinion provider
	if err := container.Provide(func(f *factory.OpinionFactory) (core.OpinionProvider, error) {
		return f.CreateOpinionProvider()
	}); err != nil {
		return nil, err
	}

	// Register persistence collaborators
	if err := container.Provide(func(f *factory.StoreFactory) (core.ResultStore, error) {
		return f.CreateResultStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (ml.ArtifactStore, error) {
		return f.CreateArtifactStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StoreFactory) ml.TrainingSource {
		return f.CreateTrainingSource()
	}); err != nil {
		return nil, err
	}

	// Register the statistical classifier
	if err := container.Provide(func(
		store ml.ArtifactStore,
		source ml.TrainingSource,
		logger *zap.Logger,
	) core.Classifier {
		return ml.NewClassifier(store, source, logger)
	}); err != nil {
		return nil, err
	}

	// Register the rule engine
	if err := container.Provide(func() core.RuleEngine {
		return rules.NewEngine()
	}); err != nil {
		return nil, err
	}

	// Register the analysis service
	if err := container.Provide(core.NewAnalysisService); err != nil {
		return nil, err
	}

	return container, nil
}
