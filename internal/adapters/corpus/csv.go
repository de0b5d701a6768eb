// Package corpus supplies labeled training samples to the classifier. The
// CSV layout ("Email Text", "Email Type") is owned here; the classifier
// only sees text plus a binary label.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/ml"
)

const (
	textColumn  = "Email Text"
	labelColumn = "Email Type"
	safeLabel   = "Safe Email"
)

// CSVSource reads the training corpus from a CSV file. Any label other
// than the safe one counts as phishing.
type CSVSource struct {
	path   string
	logger *zap.Logger
}

// NewCSVSource creates a source for the given file path.
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger}
}

// Samples loads and labels the full corpus.
func (s *CSVSource) Samples(ctx context.Context) ([]ml.Sample, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}
	textIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case textColumn:
			textIdx = i
		case labelColumn:
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("corpus is missing %q or %q column", textColumn, labelColumn)
	}

	var samples []ml.Sample
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(record) <= textIdx || len(record) <= labelIdx {
			skipped++
			continue
		}
		samples = append(samples, ml.Sample{
			Text:     record[textIdx],
			Phishing: strings.TrimSpace(record[labelIdx]) != safeLabel,
		})
	}

	if skipped > 0 {
		s.logger.Warn("Skipped malformed corpus rows", zap.Int("skipped", skipped))
	}
	s.logger.Info("Loaded training corpus",
		zap.String("path", s.path),
		zap.Int("samples", len(samples)))

	return samples, nil
}
