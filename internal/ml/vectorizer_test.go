package ml

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFitVectorizerCapsVocabularyByDocumentFrequency(t *testing.T) {
	docs := []string{
		"alpha beta gamma",
		"alpha beta",
		"alpha",
	}

	v := FitVectorizer(docs, 2)
	if v.NumFeatures() != 2 {
		t.Fatalf("expected vocabulary cap of 2, got %d", v.NumFeatures())
	}
	// alpha (df 3) and beta (df 2) survive; gamma (df 1) is cut.
	if _, ok := v.vocab["alpha"]; !ok {
		t.Error("highest-frequency term missing from vocabulary")
	}
	if _, ok := v.vocab["gamma"]; ok {
		t.Error("lowest-frequency term should have been cut by the cap")
	}
}

func TestFitVectorizerBreaksTiesLexicographically(t *testing.T) {
	docs := []string{"zebra apple", "zebra apple"}

	v := FitVectorizer(docs, 1)
	if _, ok := v.vocab["apple"]; !ok {
		t.Error("tied terms must break lexicographically")
	}
}

func TestTransformProducesUnitVectors(t *testing.T) {
	v := FitVectorizer([]string{"alpha beta", "beta gamma", "gamma delta"}, 0)

	vec := v.Transform("alpha beta beta gamma")
	if norm := mat.Norm(vec, 2); math.Abs(norm-1) > 1e-12 {
		t.Errorf("expected unit L2 norm, got %f", norm)
	}
}

func TestTransformDropsOutOfVocabularyTerms(t *testing.T) {
	v := FitVectorizer([]string{"alpha beta"}, 0)

	vec := v.Transform("unknown terms only")
	if norm := mat.Norm(vec, 2); norm != 0 {
		t.Errorf("out-of-vocabulary document must map to the zero vector, got norm %f", norm)
	}
}

func TestVectorizerRoundTrip(t *testing.T) {
	v := FitVectorizer([]string{"alpha beta gamma", "beta gamma", "gamma"}, 0)

	blob, err := v.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	restored, err := DecodeVectorizer(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	doc := "alpha gamma gamma"
	want, got := v.Transform(doc), restored.Transform(doc)
	if !mat.EqualApprox(want, got, 1e-12) {
		t.Error("restored vectorizer must reproduce transforms exactly")
	}
}

func TestTrainLogRegSeparatesClasses(t *testing.T) {
	v := FitVectorizer([]string{"spam spam spam", "ham ham ham"}, 0)
	features := []*mat.VecDense{
		v.Transform("spam spam"),
		v.Transform("ham ham"),
		v.Transform("spam"),
		v.Transform("ham"),
	}
	labels := []float64{1, 0, 1, 0}

	m := TrainLogReg(features, labels, 42)
	if p := m.Prob(v.Transform("spam")); p < 0.5 {
		t.Errorf("positive-class document scored %f", p)
	}
	if p := m.Prob(v.Transform("ham")); p >= 0.5 {
		t.Errorf("negative-class document scored %f", p)
	}
}

func TestLogRegRoundTrip(t *testing.T) {
	v := FitVectorizer([]string{"spam junk", "ham fine"}, 0)
	features := []*mat.VecDense{v.Transform("spam junk"), v.Transform("ham fine")}
	m := TrainLogReg(features, []float64{1, 0}, 42)

	blob, err := m.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	restored, err := DecodeLogReg(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	x := v.Transform("spam fine")
	if m.Prob(x) != restored.Prob(x) {
		t.Error("restored model must reproduce probabilities exactly")
	}
}
