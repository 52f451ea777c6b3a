// Package dedup partitions article batches into duplicate groups by fusing
// event-key, lexical, and semantic similarity signals.
package dedup

import (
	"horse.fit/finwire/internal/similarity"
)

const (
	// TrainedCosineThreshold applies when the embedding source is a
	// learned semantic model.
	TrainedCosineThreshold = 0.85
	// FallbackCosineThreshold applies to degraded hashed embeddings,
	// whose cosines run lower for genuinely duplicate text.
	FallbackCosineThreshold = 0.75

	fullTextJaccardThreshold = 0.58
	titleJaccardThreshold    = 0.7
)

// GateConfig carries the calibration inputs of the pairwise gate. The
// cosine threshold is injected so the gate stays reusable across embedding
// backends.
type GateConfig struct {
	CosineThreshold float64
}

// CosineThresholdFor selects the calibrated threshold for an embedding
// backend capability.
func CosineThresholdFor(trained bool) float64 {
	if trained {
		return TrainedCosineThreshold
	}
	return FallbackCosineThreshold
}

// Gate decides whether two prepared articles describe the same event.
type Gate struct {
	cfg GateConfig
}

func NewGate(cfg GateConfig) *Gate {
	if cfg.CosineThreshold <= 0 {
		cfg.CosineThreshold = TrainedCosineThreshold
	}
	return &Gate{cfg: cfg}
}

// IsDuplicate combines the four duplicate signals. Event-key equality is an
// unconditional shortcut: a shared key encodes action, magnitude, and
// entity, which guarantees semantic identity even when every other signal
// misses.
func (g *Gate) IsDuplicate(a, b *prepared) bool {
	if a.eventKey != "" && a.eventKey == b.eventKey {
		return true
	}
	if similarity.Cosine(a.embedding, b.embedding) >= g.cfg.CosineThreshold {
		return true
	}
	if similarity.Jaccard(a.fullTokens, b.fullTokens) >= fullTextJaccardThreshold {
		return true
	}
	return similarity.Jaccard(a.titleTokens, b.titleTokens) >= titleJaccardThreshold
}
