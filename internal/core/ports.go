package core

import (
	"context"
)

// Classifier is the statistical signal source. Predict never fails hard:
// internal errors are recovered into a verdict with Confidence "error".
type Classifier interface {
	// Predict scores the email body text. The first call may train
	// synchronously if no persisted artifacts exist yet.
	Predict(ctx context.Context, bodyText string) ClassifierVerdict

	// Retrain rebuilds the model from the training corpus and replaces the
	// persisted artifacts. Concurrent retrains are rejected, not queued.
	Retrain(ctx context.Context) (TrainingMetrics, error)

	// Status reports whether trained artifacts exist and their metadata.
	Status(ctx context.Context) (ModelStatus, error)
}

// RuleEngine is the deterministic signal source. Score is pure: identical
// signals yield identical verdicts, indicator order included.
type RuleEngine interface {
	Score(sig *EmailSignal) RuleVerdict
}

// OpinionMetadata is the derived context sent to the remote model alongside
// the email body.
type OpinionMetadata struct {
	Sender        string
	Subject       string
	SPF           AuthResult
	DKIM          AuthResult
	DMARC         AuthResult
	HasAttachment bool
}

// OpinionProvider is the remote-model signal source. Consult never fails
// hard: transport, quota and parse errors are recovered into a verdict
// carrying an error field.
type OpinionProvider interface {
	Consult(ctx context.Context, bodyText string, meta OpinionMetadata) ExternalVerdict
}

// ResultStore persists one AnalysisResult per email, keyed by email identity.
// Save overwrites any previous row for the same email.
type ResultStore interface {
	Save(ctx context.Context, result *AnalysisResult) error
	Get(ctx context.Context, emailID string) (*AnalysisResult, error)
}
