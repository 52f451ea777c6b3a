package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const DefaultHashingDimensions = 384

var (
	digitLetterBoundary = regexp.MustCompile(`(\d)([a-zA-Z]+)`)
	nonTokenRunes       = regexp.MustCompile(`[^a-z0-9%]+`)
)

// HashingSource is the degraded fallback embedder: a hashed bag of words
// with half-weight bigrams, L2-normalized. It needs no model files and is
// deterministic, at the cost of much weaker discriminative power. The
// dedup gate compensates with a lower cosine threshold.
type HashingSource struct {
	dimensions int
}

func NewHashingSource(dimensions int) *HashingSource {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingSource{dimensions: dimensions}
}

func (s *HashingSource) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = s.embedOne(text)
	}
	return vectors, nil
}

func (s *HashingSource) Dimensions() int { return s.dimensions }

func (s *HashingSource) Trained() bool { return false }

func (s *HashingSource) embedOne(text string) []float64 {
	tokens := hashingTokenize(text)
	vec := make([]float64, s.dimensions)
	for i, token := range tokens {
		vec[s.bucket(token)] += 1.0
		if i+1 < len(tokens) {
			vec[s.bucket(token+"_"+tokens[i+1])] += 0.5
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (s *HashingSource) bucket(token string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum64() % uint64(s.dimensions))
}

func hashingTokenize(text string) []string {
	t := strings.ToLower(text)
	// Split fused magnitude tokens: 25bps -> 25 bps.
	t = digitLetterBoundary.ReplaceAllString(t, "$1 $2")
	t = nonTokenRunes.ReplaceAllString(t, " ")
	return strings.Fields(t)
}
