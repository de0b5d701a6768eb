package core

import (
	"time"
)

// AuthResult is the tri-state outcome of an email authentication check
// (SPF, DKIM or DMARC). Headers are often missing, so "unknown" is a
// first-class value distinct from an explicit failure.
type AuthResult int

const (
	AuthUnknown AuthResult = iota
	AuthPass
	AuthFail
)

// Failed reports whether the check explicitly failed. Unknown is not a failure.
func (a AuthResult) Failed() bool {
	return a == AuthFail
}

// Word renders the result the way it is presented to the remote model.
func (a AuthResult) Word() string {
	switch a {
	case AuthPass:
		return "Yes"
	case AuthFail:
		return "No"
	default:
		return "Unknown"
	}
}

// Link is a hyperlink extracted from an email body.
type Link struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	Domain     string `json:"domain"`
}

// EmailSignal is the already-parsed view of one email handed to the
// analysis pipeline. The pipeline never mutates it.
type EmailSignal struct {
	ID            string
	Sender        string
	Subject       string
	BodyText      string
	Links         []Link
	SPF           AuthResult
	DKIM          AuthResult
	DMARC         AuthResult
	HasAttachment bool
}

// Confidence is the discretized certainty band of the statistical classifier.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
	ConfidenceError  Confidence = "error"
)

// ClassifierVerdict is the output of the statistical classifier for one email.
type ClassifierVerdict struct {
	IsPhishing  bool       `json:"is_phishing"`
	Probability float64    `json:"probability"`
	Confidence  Confidence `json:"confidence"`
	Err         string     `json:"error,omitempty"`
}

// RuleVerdict is the output of the deterministic rule engine. Indicators
// are ordered by rule evaluation order so audit trails are reproducible.
type RuleVerdict struct {
	Score      int      `json:"score"`
	Indicators []string `json:"indicators"`
}

// ExternalVerdict is the normalized reply of the remote-model opinion.
type ExternalVerdict struct {
	IsPhishing      bool     `json:"is_phishing"`
	Score           float64  `json:"phishing_score"`
	KeyIndicators   []string `json:"key_indicators"`
	SafeIndicators  []string `json:"safe_indicators"`
	Recommendations []string `json:"recommendations"`
	Narrative       string   `json:"analysis"`
	ParseError      string   `json:"parsing_error,omitempty"`
	Err             string   `json:"error,omitempty"`
}

// Method identifies the single signal source credited with the final verdict.
type Method string

const (
	MethodNone  Method = "none"
	MethodML    Method = "ml"
	MethodRules Method = "rules"
	MethodAI    Method = "ai"
)

// AnalysisResult is the final verdict for one email, together with every
// sub-verdict that was produced along the way. It is the only entity the
// pipeline persists; a new analysis overwrites any prior row for the email.
type AnalysisResult struct {
	EmailID         string             `json:"email_id"`
	IsPhishing      bool               `json:"is_phishing"`
	PhishingScore   float64            `json:"phishing_score"`
	DetectionMethod Method             `json:"detection_method"`
	ML              *ClassifierVerdict `json:"ml_analysis,omitempty"`
	MLError         string             `json:"ml_error,omitempty"`
	Rules           *RuleVerdict       `json:"rule_analysis,omitempty"`
	AI              *ExternalVerdict   `json:"ai_analysis,omitempty"`
	AIError         string             `json:"ai_error,omitempty"`
	AnalyzedAt      time.Time          `json:"analyzed_at"`
}

// TrainingMetrics describes one completed training run of the classifier.
type TrainingMetrics struct {
	Accuracy  float64   `json:"accuracy"`
	F1        float64   `json:"f1_score"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trained_at"`
}

// ModelStatus reports whether trained artifacts exist and the metadata of
// the last training run, if any.
type ModelStatus struct {
	ArtifactsPresent bool             `json:"artifacts_present"`
	Metadata         *TrainingMetrics `json:"metadata,omitempty"`
}
