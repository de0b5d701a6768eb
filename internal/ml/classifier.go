// Package ml implements the trained statistical signal source: a TF-IDF
// vectorizer feeding a logistic-regression model, with a lazy
// train-on-first-use lifecycle and persisted artifacts.
package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/textnorm"
)

// ErrNoArtifacts is returned by an ArtifactStore when nothing has been
// trained and persisted yet.
var ErrNoArtifacts = errors.New("no trained artifacts present")

// Artifacts is the persisted output of one training run: two opaque blobs
// plus the metrics of the run. The two blobs are only ever written and
// swapped together; serving a vectorizer from one run with a model from
// another would silently misclassify everything.
type Artifacts struct {
	Vectorizer []byte
	Model      []byte
	Metrics    core.TrainingMetrics
}

// ArtifactStore persists trained artifacts. Save must be atomic with
// respect to concurrent Load calls.
type ArtifactStore interface {
	Load(ctx context.Context) (*Artifacts, error)
	Save(ctx context.Context, artifacts *Artifacts) error
}

// Sample is one labeled training document.
type Sample struct {
	Text     string
	Phishing bool
}

// TrainingSource supplies the labeled corpus. The corpus format is owned
// by the adapter behind this interface, not by the classifier.
type TrainingSource interface {
	Samples(ctx context.Context) ([]Sample, error)
}

// Fixed training parameters: feature-space size, held-out fraction and the
// shuffle seed that makes every run reproducible.
const (
	maxFeatures  = 5000
	testFraction = 0.2
	splitSeed    = 42
)

// Confidence band cut-offs on |probability - 0.5|.
const (
	highConfidenceMargin   = 0.3
	mediumConfidenceMargin = 0.15
	decisionThreshold      = 0.5
)

// Classifier is the statistical signal source. A prediction that races a
// retrain observes either the fully-old or fully-new artifact pair.
type Classifier struct {
	store  ArtifactStore
	source TrainingSource
	logger *zap.Logger

	current   atomic.Pointer[pair]
	loadMu    sync.Mutex
	retrainMu sync.Mutex
}

// pair is one consistent vectorizer+model combination.
type pair struct {
	vectorizer *Vectorizer
	model      *LogReg
	metrics    core.TrainingMetrics
}

// NewClassifier creates a classifier backed by the given artifact store
// and training source. No artifacts are loaded until first use.
func NewClassifier(store ArtifactStore, source TrainingSource, logger *zap.Logger) *Classifier {
	return &Classifier{
		store:  store,
		source: source,
		logger: logger,
	}
}

// Predict scores one email body. Internal failures are recovered into a
// verdict with Confidence "error"; callers never see a hard failure here.
func (c *Classifier) Predict(ctx context.Context, bodyText string) core.ClassifierVerdict {
	p, err := c.ensureLoaded(ctx)
	if err != nil {
		return core.ClassifierVerdict{
			IsPhishing:  false,
			Probability: 0.0,
			Confidence:  core.ConfidenceError,
			Err:         err.Error(),
		}
	}

	normalized := textnorm.Normalize(bodyText)
	prob := p.model.Prob(p.vectorizer.Transform(normalized))

	verdict := core.ClassifierVerdict{
		IsPhishing:  prob >= decisionThreshold,
		Probability: prob,
	}
	switch margin := math.Abs(prob - decisionThreshold); {
	case margin > highConfidenceMargin:
		verdict.Confidence = core.ConfidenceHigh
	case margin > mediumConfidenceMargin:
		verdict.Confidence = core.ConfidenceMedium
	default:
		verdict.Confidence = core.ConfidenceLow
	}

	return verdict
}

// Retrain rebuilds the artifacts from the training corpus and replaces
// them. A retrain requested while another is running is rejected.
func (c *Classifier) Retrain(ctx context.Context) (core.TrainingMetrics, error) {
	if !c.retrainMu.TryLock() {
		return core.TrainingMetrics{}, core.ErrRetrainInProgress
	}
	defer c.retrainMu.Unlock()

	p, err := c.train(ctx)
	if err != nil {
		return core.TrainingMetrics{}, &core.ModelUnavailableError{Reason: err}
	}

	c.current.Store(p)
	return p.metrics, nil
}

// Status reports whether persisted artifacts exist and their metadata.
func (c *Classifier) Status(ctx context.Context) (core.ModelStatus, error) {
	artifacts, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoArtifacts) {
			return core.ModelStatus{ArtifactsPresent: false}, nil
		}
		return core.ModelStatus{}, fmt.Errorf("failed to load artifacts: %w", err)
	}

	metrics := artifacts.Metrics
	return core.ModelStatus{ArtifactsPresent: true, Metadata: &metrics}, nil
}

// ensureLoaded returns the served artifact pair, loading it from the store
// or training from scratch on first use. Loading is serialized so a burst
// of first predictions triggers training only once.
func (c *Classifier) ensureLoaded(ctx context.Context) (*pair, error) {
	if p := c.current.Load(); p != nil {
		return p, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if p := c.current.Load(); p != nil {
		return p, nil
	}

	artifacts, err := c.store.Load(ctx)
	if err == nil {
		p, derr := decodePair(artifacts)
		if derr != nil {
			return nil, derr
		}
		c.current.Store(p)
		return p, nil
	}
	if !errors.Is(err, ErrNoArtifacts) {
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}

	c.logger.Info("No trained artifacts found, training synchronously")
	p, err := c.train(ctx)
	if err != nil {
		return nil, &core.ModelUnavailableError{Reason: err}
	}
	c.current.Store(p)
	return p, nil
}

// train runs one full training pass: normalize, split, fit, evaluate,
// persist. The persisted artifacts are written before the new pair is
// served, so a crash mid-train leaves the old pair intact.
func (c *Classifier) train(ctx context.Context) (*pair, error) {
	start := time.Now()
	samples, err := c.source.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training corpus: %w", err)
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("training corpus too small: %d samples", len(samples))
	}

	docs := make([]string, len(samples))
	labels := make([]float64, len(samples))
	for i, s := range samples {
		docs[i] = textnorm.Normalize(s.Text)
		if s.Phishing {
			labels[i] = 1
		}
	}

	// Held-out split with a fixed seed so metrics are reproducible.
	rng := rand.New(rand.NewSource(splitSeed))
	order := rng.Perm(len(samples))
	testSize := int(float64(len(samples)) * testFraction)
	if testSize < 1 {
		testSize = 1
	}
	testIdx, trainIdx := order[:testSize], order[testSize:]

	trainDocs := make([]string, len(trainIdx))
	for i, idx := range trainIdx {
		trainDocs[i] = docs[idx]
	}
	vectorizer := FitVectorizer(trainDocs, maxFeatures)

	trainX := make([]*mat.VecDense, len(trainIdx))
	trainY := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		trainX[i] = vectorizer.Transform(docs[idx])
		trainY[i] = labels[idx]
	}
	model := TrainLogReg(trainX, trainY, splitSeed)

	metrics := evaluate(vectorizer, model, docs, labels, testIdx)
	metrics.Samples = len(samples)
	metrics.TrainedAt = time.Now()

	vecBlob, err := vectorizer.Encode()
	if err != nil {
		return nil, err
	}
	modelBlob, err := model.Encode()
	if err != nil {
		return nil, err
	}
	artifacts := &Artifacts{Vectorizer: vecBlob, Model: modelBlob, Metrics: metrics}
	if err := c.store.Save(ctx, artifacts); err != nil {
		return nil, fmt.Errorf("failed to persist artifacts: %w", err)
	}

	c.logger.Info("Classifier trained",
		zap.Int("samples", metrics.Samples),
		zap.Int("features", vectorizer.NumFeatures()),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1_score", metrics.F1),
		zap.Duration("duration", time.Since(start)))

	return &pair{vectorizer: vectorizer, model: model, metrics: metrics}, nil
}

// evaluate computes held-out accuracy, precision, recall and F1.
func evaluate(vectorizer *Vectorizer, model *LogReg, docs []string, labels []float64, testIdx []int) core.TrainingMetrics {
	var tp, tn, fp, fn float64
	for _, idx := range testIdx {
		predicted := model.Prob(vectorizer.Transform(docs[idx])) >= decisionThreshold
		actual := labels[idx] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	metrics := core.TrainingMetrics{}
	if total := tp + tn + fp + fn; total > 0 {
		metrics.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		metrics.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		metrics.Recall = tp / (tp + fn)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}

	return metrics
}

func decodePair(artifacts *Artifacts) (*pair, error) {
	vectorizer, err := DecodeVectorizer(artifacts.Vectorizer)
	if err != nil {
		return nil, err
	}
	model, err := DecodeLogReg(artifacts.Model)
	if err != nil {
		return nil, err
	}
	return &pair{vectorizer: vectorizer, model: model, metrics: artifacts.Metrics}, nil
}
