package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LogReg is a binary logistic-regression model over the vectorizer's
// feature space. Immutable once trained; Prob is safe for concurrent use.
type LogReg struct {
	weights *mat.VecDense
	bias    float64
}

// modelState is the gob-persisted form of a trained model.
type modelState struct {
	Weights []float64
	Bias    float64
}

// trainingConfig controls the gradient-descent fit. Values are fixed so a
// given corpus and seed always produce the same model.
const (
	trainEpochs       = 50
	trainLearningRate = 0.5
)

// TrainLogReg fits the model with stochastic gradient descent over the
// label {0, 1} targets. The sample order is shuffled per epoch from the
// given seed, so training is reproducible.
func TrainLogReg(features []*mat.VecDense, labels []float64, seed int64) *LogReg {
	dim := 1
	if len(features) > 0 {
		dim = features[0].Len()
	}
	m := &LogReg{weights: mat.NewVecDense(dim, nil)}

	rng := rand.New(rand.NewSource(seed))
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < trainEpochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, idx := range order {
			p := m.Prob(features[idx])
			grad := labels[idx] - p
			m.weights.AddScaledVec(m.weights, trainLearningRate*grad, features[idx])
			m.bias += trainLearningRate * grad
		}
	}

	return m
}

// Prob returns the phishing-class probability for one feature vector.
func (m *LogReg) Prob(x *mat.VecDense) float64 {
	z := mat.Dot(m.weights, x) + m.bias
	return 1 / (1 + math.Exp(-z))
}

// Encode serializes the trained model into an opaque blob.
func (m *LogReg) Encode() ([]byte, error) {
	var buf bytes.Buffer
	state := modelState{Weights: m.weights.RawVector().Data, Bias: m.bias}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeLogReg restores a trained model from its persisted blob.
func DecodeLogReg(blob []byte) (*LogReg, error) {
	var state modelState
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return &LogReg{
		weights: mat.NewVecDense(len(state.Weights), state.Weights),
		bias:    state.Bias,
	}, nil
}
