package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/adapters/artifacts"
	"github.com/mailwatch/phishfilter/internal/adapters/corpus"
	"github.com/mailwatch/phishfilter/internal/adapters/store"
	"github.com/mailwatch/phishfilter/internal/config"
	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/ml"
)

// StoreFactory creates the persistence collaborators: the result store and
// the classifier's artifact store and training source.
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory.
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateResultStore builds the configured analysis-result store.
func (f *StoreFactory) CreateResultStore() (core.ResultStore, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "sqlite":
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}

// CreateArtifactStore builds the filesystem artifact store.
func (f *StoreFactory) CreateArtifactStore() (ml.ArtifactStore, error) {
	mlCfg := f.cfg.GetML()
	return artifacts.NewFSStore(mlCfg.ArtifactDir, f.logger)
}

// CreateTrainingSource builds the CSV corpus source.
func (f *StoreFactory) CreateTrainingSource() ml.TrainingSource {
	mlCfg := f.cfg.GetML()
	return corpus.NewCSVSource(mlCfg.CorpusPath, f.logger)
}
