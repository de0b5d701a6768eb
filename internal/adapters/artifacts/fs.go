// Package artifacts persists trained classifier artifacts on the local
// filesystem: one blob each for the vectorizer and the model, plus a JSON
// metadata sidecar describing the training run.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/ml"
)

const (
	vectorizerFile = "vectorizer.gob"
	modelFile      = "phishing_model.gob"
	metadataFile   = "model_metadata.json"
)

// FSStore stores artifacts under a single directory. A mutex keeps loads
// from observing a half-written vectorizer+model pair, and each file is
// written via temp-file + rename so a crash never truncates a served
// artifact.
type FSStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewFSStore creates the artifact directory if needed.
func NewFSStore(dir string, logger *zap.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &FSStore{dir: dir, logger: logger}, nil
}

// Load reads the persisted artifact pair and metadata. Returns
// ml.ErrNoArtifacts when either blob is missing.
func (s *FSStore) Load(ctx context.Context) (*ml.Artifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectorizer, err := os.ReadFile(filepath.Join(s.dir, vectorizerFile))
	if err != nil {
		return nil, missingOr(err, "vectorizer")
	}
	model, err := os.ReadFile(filepath.Join(s.dir, modelFile))
	if err != nil {
		return nil, missingOr(err, "model")
	}

	artifacts := &ml.Artifacts{Vectorizer: vectorizer, Model: model}
	meta, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if err == nil {
		var metrics core.TrainingMetrics
		if jerr := json.Unmarshal(meta, &metrics); jerr == nil {
			artifacts.Metrics = metrics
		} else {
			s.logger.Warn("Ignoring unreadable artifact metadata", zap.Error(jerr))
		}
	}

	return artifacts, nil
}

// Save replaces the persisted artifacts.
func (s *FSStore) Save(ctx context.Context, artifacts *ml.Artifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := json.MarshalIndent(artifacts.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{vectorizerFile, artifacts.Vectorizer},
		{modelFile, artifacts.Model},
		{metadataFile, meta},
	}
	for _, f := range files {
		if err := s.writeAtomic(f.name, f.data); err != nil {
			return err
		}
	}

	return nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it into place.
func (s *FSStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}

func missingOr(err error, what string) error {
	if errors.Is(err, os.ErrNotExist) {
		return ml.ErrNoArtifacts
	}
	return fmt.Errorf("failed to read %s blob: %w", what, err)
}
