package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Vectorizer maps normalized text onto a fixed TF-IDF feature space. It is
// immutable once fitted; Transform is safe for concurrent use.
type Vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// vectorizerState is the gob-persisted form of a fitted vectorizer.
type vectorizerState struct {
	Vocab map[string]int
	IDF   []float64
}

// FitVectorizer builds a vocabulary of at most maxFeatures terms from the
// training documents, ranked by document frequency. Ties break
// lexicographically so fitting is deterministic.
func FitVectorizer(docs []string, maxFeatures int) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range strings.Fields(doc) {
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, term := range terms {
		v.vocab[term] = i
		// Smoothed IDF; keeps terms present in every document from zeroing out.
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return v
}

// NumFeatures returns the dimensionality of the feature space.
func (v *Vectorizer) NumFeatures() int {
	return len(v.idf)
}

// Transform converts one normalized document into an L2-normalized TF-IDF
// vector. Out-of-vocabulary terms are dropped.
func (v *Vectorizer) Transform(doc string) *mat.VecDense {
	vec := mat.NewVecDense(max(len(v.idf), 1), nil)
	if len(v.idf) == 0 {
		return vec
	}

	for _, term := range strings.Fields(doc) {
		if idx, ok := v.vocab[term]; ok {
			vec.SetVec(idx, vec.AtVec(idx)+v.idf[idx])
		}
	}

	if norm := mat.Norm(vec, 2); norm > 0 {
		vec.ScaleVec(1/norm, vec)
	}

	return vec
}

// Encode serializes the fitted vectorizer into an opaque blob.
func (v *Vectorizer) Encode() ([]byte, error) {
	var buf bytes.Buffer
	state := vectorizerState{Vocab: v.vocab, IDF: v.idf}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode vectorizer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeVectorizer restores a fitted vectorizer from its persisted blob.
func DecodeVectorizer(blob []byte) (*Vectorizer, error) {
	var state vectorizerState
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode vectorizer: %w", err)
	}
	return &Vectorizer{vocab: state.Vocab, idf: state.IDF}, nil
}
