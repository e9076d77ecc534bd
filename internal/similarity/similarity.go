// Package similarity provides the similarity primitives shared by the
// response cache, anomaly filter and consolidator.
//
// Two measures are supported: cosine similarity over embedding vectors,
// and token-set Jaccard similarity over raw text. Jaccard is the lexical
// fallback used whenever embeddings are unavailable.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Cosine computes the cosine similarity between two vectors.
//
// Returns 0 for mismatched lengths, empty vectors or zero-magnitude vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Tokenize splits text into a lowercased token set.
//
// Tokens are runs of letters and digits; everything else is a separator.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			tokens[sb.String()] = struct{}{}
			sb.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// Jaccard computes token-set Jaccard similarity between two texts.
//
// Returns 1 when both texts tokenize to the empty set.
func Jaccard(a, b string) float64 {
	setA := Tokenize(a)
	setB := Tokenize(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
