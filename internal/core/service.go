package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Thresholds of the fusion policy. Rule scores and external scores share
// the 0-100 scale; classifier probabilities are promoted onto it.
const (
	rulesDecisiveScore = 50  // rule engine alone asserts phishing
	escalationScore    = 30  // ambiguous enough to pay for a remote opinion
	confidentScore     = 70  // decisive and confident, no escalation needed
	overrideScore      = 70  // remote opinion overturns prior verdicts above this
	disagreeScore      = 30  // remote opinion disagrees strongly below this
	dampenFactor       = 0.7 // confidence reduction on strong disagreement
	dampenFloor        = 50  // dampened scores never drop below this
)

// AnalysisService fuses the three signal sources into one verdict. It is
// the only component aware of all three; each source is independently
// fallible and interchangeable.
type AnalysisService struct {
	classifier Classifier
	rules      RuleEngine
	opinion    OpinionProvider
	store      ResultStore
	logger     *zap.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	classifier Classifier,
	rules RuleEngine,
	opinion OpinionProvider,
	store ResultStore,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		classifier: classifier,
		rules:      rules,
		opinion:    opinion,
		store:      store,
		logger:     logger,
	}
}

// Analyze runs the full detection pipeline for one email and persists the
// result. It always returns a complete AnalysisResult; individual method
// failures degrade that method to non-decisive rather than aborting.
func (s *AnalysisService) Analyze(ctx context.Context, sig *EmailSignal) (*AnalysisResult, error) {
	if sig == nil {
		return nil, ErrMissingSignal
	}

	result := &AnalysisResult{
		EmailID:         sig.ID,
		DetectionMethod: MethodNone,
		AnalyzedAt:      time.Now(),
	}
	decisive := false

	// 1. Statistical classifier.
	ml := s.classifier.Predict(ctx, sig.BodyText)
	result.ML = &ml
	if ml.Err != "" {
		result.MLError = ml.Err
		s.logger.Warn("Classifier degraded to non-decisive",
			zap.String("email_id", sig.ID),
			zap.String("error", ml.Err))
	}
	if ml.IsPhishing && (ml.Confidence == ConfidenceHigh || ml.Confidence == ConfidenceMedium) {
		decisive = true
		result.IsPhishing = true
		result.PhishingScore = ml.Probability * 100
		result.DetectionMethod = MethodML
	}

	// 2. Rule engine runs unconditionally; its indicators are always kept
	// for the audit trail even when not decisive.
	rules := s.rules.Score(sig)
	result.Rules = &rules
	if !decisive && rules.Score >= rulesDecisiveScore {
		decisive = true
		result.IsPhishing = true
		result.PhishingScore = float64(rules.Score)
		result.DetectionMethod = MethodRules
	}

	// 3. Escalate to the remote opinion only when prior signals are
	// ambiguous: nothing fired but the rules are suspicious, or something
	// fired without much margin.
	escalate := (!decisive && rules.Score >= escalationScore) ||
		(decisive && result.PhishingScore < confidentScore)
	if escalate {
		s.logger.Debug("Escalating to remote opinion",
			zap.String("email_id", sig.ID),
			zap.Int("rule_score", rules.Score),
			zap.Float64("score", result.PhishingScore),
			zap.Bool("decisive", decisive))

		ai := s.opinion.Consult(ctx, sig.BodyText, OpinionMetadata{
			Sender:        sig.Sender,
			Subject:       sig.Subject,
			SPF:           sig.SPF,
			DKIM:          sig.DKIM,
			DMARC:         sig.DMARC,
			HasAttachment: sig.HasAttachment,
		})
		result.AI = &ai
		if ai.Err != "" {
			result.AIError = ai.Err
			s.logger.Warn("Remote opinion call failed",
				zap.String("email_id", sig.ID),
				zap.String("error", ai.Err))
		}
		// The recovered zero verdict of a failed call goes through
		// resolution like any other reply: it can never override (it is
		// benign), but it does dampen a borderline decisive score.
		applyOpinion(result, decisive, &ai)
	}

	s.logger.Info("Email analyzed",
		zap.String("email_id", sig.ID),
		zap.Bool("is_phishing", result.IsPhishing),
		zap.Float64("phishing_score", result.PhishingScore),
		zap.String("detection_method", string(result.DetectionMethod)))

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			s.logger.Error("Failed to persist analysis result",
				zap.String("email_id", sig.ID),
				zap.Error(err))
		}
	}

	return result, nil
}

// applyOpinion resolves the remote opinion against the pre-escalation
// verdict. Only a confident phishing opinion can change the attributed
// method; anything weaker either dampens the score or changes nothing.
func applyOpinion(result *AnalysisResult, decisive bool, ai *ExternalVerdict) {
	switch {
	case ai.IsPhishing && ai.Score > overrideScore:
		// The remote opinion can overturn ML/rules and can promote a
		// previously non-decisive case.
		result.IsPhishing = true
		result.PhishingScore = ai.Score
		result.DetectionMethod = MethodAI
	case decisive && !ai.IsPhishing && ai.Score < disagreeScore:
		// Strong disagreement reduces confidence but never reclassifies.
		// The floor can raise a sub-50 decisive score up to 50.
		result.PhishingScore = max(result.PhishingScore*dampenFactor, dampenFloor)
	}
}

// Retrain rebuilds the classifier artifacts from the training corpus.
func (s *AnalysisService) Retrain(ctx context.Context) (TrainingMetrics, error) {
	return s.classifier.Retrain(ctx)
}

// Status reports the classifier's artifact state and training metadata.
func (s *AnalysisService) Status(ctx context.Context) (ModelStatus, error) {
	return s.classifier.Status(ctx)
}
