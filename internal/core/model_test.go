package core

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestAuthResultWord(t *testing.T) {
	tests := []struct {
		result AuthResult
		want   string
	}{
		{AuthPass, "Yes"},
		{AuthFail, "No"},
		{AuthUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.result.Word(); got != tt.want {
			t.Errorf("Word(%d) = %q, want %q", tt.result, got, tt.want)
		}
	}

	if AuthUnknown.Failed() {
		t.Error("unknown must not count as a failure")
	}
	if !AuthFail.Failed() {
		t.Error("explicit failure must count")
	}
}

func TestAnalysisResultRoundTrip(t *testing.T) {
	original := &AnalysisResult{
		EmailID:         "msg-42",
		IsPhishing:      true,
		PhishingScore:   72.5,
		DetectionMethod: MethodAI,
		ML: &ClassifierVerdict{
			IsPhishing:  true,
			Probability: 0.64,
			Confidence:  ConfidenceLow,
		},
		Rules: &RuleVerdict{
			Score: 45,
			Indicators: []string{
				"Suspicious sender domain for financial content",
				"Email authentication failure",
				"Suspicious keywords in subject",
			},
		},
		AI: &ExternalVerdict{
			IsPhishing:      true,
			Score:           72.5,
			KeyIndicators:   []string{"urgency pressure", "mismatched link target"},
			SafeIndicators:  []string{"plain-text body"},
			Recommendations: []string{"do not click the link", "report to IT"},
			Narrative:       "Multiple indicators of credential phishing.",
		},
		AnalyzedAt: time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC),
	}

	blob, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored AnalysisResult
	if err := json.Unmarshal(blob, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, &restored) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &restored, original)
	}
	if !reflect.DeepEqual(restored.Rules.Indicators, original.Rules.Indicators) {
		t.Error("indicator order must survive serialization")
	}
}
