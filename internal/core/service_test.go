package core

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

type stubClassifier struct {
	verdict ClassifierVerdict
}

func (s *stubClassifier) Predict(ctx context.Context, bodyText string) ClassifierVerdict {
	return s.verdict
}

func (s *stubClassifier) Retrain(ctx context.Context) (TrainingMetrics, error) {
	return TrainingMetrics{}, nil
}

func (s *stubClassifier) Status(ctx context.Context) (ModelStatus, error) {
	return ModelStatus{}, nil
}

type stubRules struct {
	verdict RuleVerdict
}

func (s *stubRules) Score(sig *EmailSignal) RuleVerdict {
	return s.verdict
}

type stubOpinion struct {
	verdict ExternalVerdict
	called  bool
}

func (s *stubOpinion) Consult(ctx context.Context, bodyText string, meta OpinionMetadata) ExternalVerdict {
	s.called = true
	return s.verdict
}

func newTestService(ml ClassifierVerdict, rules RuleVerdict, ai ExternalVerdict) (*AnalysisService, *stubOpinion) {
	opinion := &stubOpinion{verdict: ai}
	service := NewAnalysisService(
		&stubClassifier{verdict: ml},
		&stubRules{verdict: rules},
		opinion,
		nil,
		zap.NewNop(),
	)
	return service, opinion
}

func benignVerdicts() (ClassifierVerdict, RuleVerdict, ExternalVerdict) {
	return ClassifierVerdict{IsPhishing: false, Probability: 0.1, Confidence: ConfidenceHigh},
		RuleVerdict{Score: 0, Indicators: []string{}},
		ExternalVerdict{}
}

func TestAnalyzeMissingSignal(t *testing.T) {
	ml, rules, ai := benignVerdicts()
	service, _ := newTestService(ml, rules, ai)

	if _, err := service.Analyze(context.Background(), nil); err != ErrMissingSignal {
		t.Fatalf("expected ErrMissingSignal, got %v", err)
	}
}

func TestAnalyzeDefaultCase(t *testing.T) {
	ml, rules, ai := benignVerdicts()
	ml.Confidence = ConfidenceLow
	service, opinion := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{
		ID:      "msg-1",
		Sender:  "alice@example.com",
		Subject: "lunch tomorrow",
		SPF:     AuthPass,
		DKIM:    AuthPass,
		DMARC:   AuthPass,
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if result.IsPhishing {
		t.Error("expected benign verdict")
	}
	if result.DetectionMethod != MethodNone {
		t.Errorf("expected method none, got %s", result.DetectionMethod)
	}
	if result.PhishingScore != 0 {
		t.Errorf("expected score 0, got %f", result.PhishingScore)
	}
	if opinion.called {
		t.Error("remote opinion should not be consulted for a clean email")
	}
}

func TestAnalyzeMLNonDecisiveWithLowConfidence(t *testing.T) {
	// A phishing prediction at low confidence must not become decisive.
	ml := ClassifierVerdict{IsPhishing: true, Probability: 0.6, Confidence: ConfidenceLow}
	_, rules, ai := benignVerdicts()
	service, _ := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-2"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.IsPhishing || result.DetectionMethod != MethodNone {
		t.Errorf("low-confidence ML must stay non-decisive, got method %s", result.DetectionMethod)
	}
}

func TestAnalyzeRulesDecisive(t *testing.T) {
	// Rule score >= 50 is decisive when ML did not fire; escalation happens
	// (score < 70) but a shrugging opinion changes nothing.
	ml, _, _ := benignVerdicts()
	ml.Confidence = ConfidenceLow
	rules := RuleVerdict{Score: 50, Indicators: []string{"Email authentication failure", "Suspicious keywords in subject"}}
	ai := ExternalVerdict{IsPhishing: false, Score: 45}
	service, opinion := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-3"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if !opinion.called {
		t.Error("decisive verdict below 70 must escalate")
	}
	if result.DetectionMethod != MethodRules {
		t.Errorf("expected method rules, got %s", result.DetectionMethod)
	}
	if result.PhishingScore != 50 {
		t.Errorf("expected score 50, got %f", result.PhishingScore)
	}
	if result.Rules == nil || len(result.Rules.Indicators) != 2 {
		t.Error("rule indicators must be recorded for audit")
	}
}

func TestEscalationSuppressedByConfidentVerdict(t *testing.T) {
	// ML decisive at score 75: confident enough that the costly remote
	// opinion is skipped entirely.
	ml := ClassifierVerdict{IsPhishing: true, Probability: 0.75, Confidence: ConfidenceHigh}
	_, rules, ai := benignVerdicts()
	service, opinion := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-4"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if opinion.called {
		t.Error("score 75 must suppress escalation")
	}
	if result.DetectionMethod != MethodML {
		t.Errorf("expected method ml, got %s", result.DetectionMethod)
	}
	if result.PhishingScore != 75 {
		t.Errorf("expected score 75, got %f", result.PhishingScore)
	}
	if result.AI != nil {
		t.Error("no AI sub-verdict should be attached when escalation is skipped")
	}
}

func TestEscalationTriggeredByBorderlineVerdict(t *testing.T) {
	// ML decisive at score 65: decisive but borderline, so the remote
	// opinion must be consulted.
	ml := ClassifierVerdict{IsPhishing: true, Probability: 0.65, Confidence: ConfidenceMedium}
	_, rules, _ := benignVerdicts()
	ai := ExternalVerdict{IsPhishing: true, Score: 60}
	service, opinion := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-5"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if !opinion.called {
		t.Error("score 65 must trigger escalation")
	}
	// AI at 60 is not above the override bar, so attribution stays with ML.
	if result.DetectionMethod != MethodML {
		t.Errorf("expected method ml, got %s", result.DetectionMethod)
	}
}

func TestOpinionOverride(t *testing.T) {
	// A confident phishing opinion promotes a previously non-decisive case.
	ml, _, _ := benignVerdicts()
	ml.Confidence = ConfidenceLow
	rules := RuleVerdict{Score: 35, Indicators: []string{"Suspicious keywords in subject"}}
	ai := ExternalVerdict{IsPhishing: true, Score: 90}
	service, opinion := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-6"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if !opinion.called {
		t.Error("rule score 35 without a decisive verdict must escalate")
	}
	if result.DetectionMethod != MethodAI {
		t.Errorf("expected method ai, got %s", result.DetectionMethod)
	}
	if !result.IsPhishing || result.PhishingScore != 90 {
		t.Errorf("expected phishing at score 90, got %t/%f", result.IsPhishing, result.PhishingScore)
	}
}

func TestOpinionErrorDampensButNeverChangesMethod(t *testing.T) {
	// A failed call recovers into a benign zero verdict, which resolves
	// like any other reply: it dampens the escalated decisive score down
	// to the floor, keeps the classification, and cannot take attribution.
	ml, _, _ := benignVerdicts()
	ml.Confidence = ConfidenceLow
	rules := RuleVerdict{Score: 55, Indicators: []string{"Email authentication failure"}}
	ai := ExternalVerdict{IsPhishing: false, Score: 0, Err: "quota exceeded"}
	service, _ := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-7"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if result.DetectionMethod != MethodRules {
		t.Errorf("an erroring opinion must not change attribution, got %s", result.DetectionMethod)
	}
	if result.AIError != "quota exceeded" {
		t.Errorf("opinion error must be preserved for audit, got %q", result.AIError)
	}
	if !result.IsPhishing {
		t.Error("classification must survive an erroring opinion")
	}
	if result.PhishingScore != 50 {
		t.Errorf("expected score dampened to the floor 50, got %f", result.PhishingScore)
	}
}

func TestOpinionErrorLeavesNonDecisiveVerdictAlone(t *testing.T) {
	// Without a prior decisive verdict there is nothing to dampen; a
	// failed call on the pure-escalation path changes no conclusion.
	ml, _, _ := benignVerdicts()
	ml.Confidence = ConfidenceLow
	rules := RuleVerdict{Score: 35, Indicators: []string{"Suspicious keywords in subject"}}
	ai := ExternalVerdict{IsPhishing: false, Score: 0, Err: "connection refused"}
	service, _ := newTestService(ml, rules, ai)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-9"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if result.IsPhishing || result.PhishingScore != 0 || result.DetectionMethod != MethodNone {
		t.Errorf("expected untouched non-decisive verdict, got %t/%f/%s",
			result.IsPhishing, result.PhishingScore, result.DetectionMethod)
	}
	if result.AIError != "connection refused" {
		t.Errorf("opinion error must be preserved, got %q", result.AIError)
	}
}

func TestApplyOpinionDampening(t *testing.T) {
	// The literal dampening rule: max(score*0.7, 50). The floor can raise
	// a sub-50 decisive score up to 50, which looks like a defect but is
	// the behavior shipped; this test pins it.
	tests := []struct {
		name       string
		priorScore float64
		want       float64
	}{
		{"standard dampening", 80, 56},
		{"floor engages", 60, 50},
		{"floor raises a weak score", 40, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &AnalysisResult{
				IsPhishing:      true,
				PhishingScore:   tt.priorScore,
				DetectionMethod: MethodRules,
			}
			ai := &ExternalVerdict{IsPhishing: false, Score: 10}
			applyOpinion(result, true, ai)

			if result.DetectionMethod != MethodRules {
				t.Errorf("dampening must not change attribution, got %s", result.DetectionMethod)
			}
			if !result.IsPhishing {
				t.Error("dampening must never reclassify")
			}
			if result.PhishingScore != tt.want {
				t.Errorf("expected score %f, got %f", tt.want, result.PhishingScore)
			}
		})
	}
}

func TestApplyOpinionNoChangeOnWeakDisagreement(t *testing.T) {
	// Disagreement at score 40 is not strong enough to dampen.
	result := &AnalysisResult{IsPhishing: true, PhishingScore: 65, DetectionMethod: MethodML}
	applyOpinion(result, true, &ExternalVerdict{IsPhishing: false, Score: 40})

	if result.PhishingScore != 65 || result.DetectionMethod != MethodML {
		t.Errorf("weak disagreement must change nothing, got %f/%s",
			result.PhishingScore, result.DetectionMethod)
	}
}

func TestAnalyzePersistsResult(t *testing.T) {
	ml, rules, ai := benignVerdicts()
	opinion := &stubOpinion{verdict: ai}
	saved := &capturingStore{}
	service := NewAnalysisService(
		&stubClassifier{verdict: ml},
		&stubRules{verdict: rules},
		opinion,
		saved,
		zap.NewNop(),
	)

	result, err := service.Analyze(context.Background(), &EmailSignal{ID: "msg-8"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if saved.last == nil {
		t.Fatal("result was not persisted")
	}
	if saved.last.EmailID != result.EmailID {
		t.Errorf("persisted result keyed by %q, want %q", saved.last.EmailID, result.EmailID)
	}
}

type capturingStore struct {
	last *AnalysisResult
}

func (s *capturingStore) Save(ctx context.Context, result *AnalysisResult) error {
	s.last = result
	return nil
}

func (s *capturingStore) Get(ctx context.Context, emailID string) (*AnalysisResult, error) {
	return nil, ErrResultNotFound
}
