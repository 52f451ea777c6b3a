package query

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/explain"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
)

// stubEmbedder returns the same vector for every text, so tests control
// vector-signal distances through the index contents alone.
type stubEmbedder struct {
	vector []float64
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vector) }
func (s *stubEmbedder) Trained() bool   { return true }

type fixture struct {
	store   *store.Memory
	index   *vectorindex.Memory
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	idx := vectorindex.NewMemory()
	svc := NewService(
		ner.NewKeywordRecognizer(ner.DefaultGazetteer()),
		st,
		&stubEmbedder{vector: []float64{1, 0}},
		idx,
		explain.NewTemplate(),
		zerolog.Nop(),
	)
	return &fixture{store: st, index: idx, service: svc}
}

func (f *fixture) seed(t *testing.T, id, title, publishedAt string, entities ...model.Entity) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.UpsertArticle(ctx, model.Article{ID: id, Title: title, PublishedAt: publishedAt}); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
	if len(entities) > 0 {
		if err := f.store.LinkArticleEntities(ctx, id, entities); err != nil {
			t.Fatalf("link %s: %v", id, err)
		}
	}
}

func companyEntity(name, normalized string) model.Entity {
	return model.Entity{ID: "COMPANY:" + name, Type: model.EntityCompany, Name: name, Normalized: normalized}
}

func sectorEntity(name, normalized string) model.Entity {
	return model.Entity{ID: "SECTOR:" + name, Type: model.EntitySector, Name: name, Normalized: normalized}
}

func TestSearch_NoSignalsReturnsEmptyList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hits, err := f.service.Search(context.Background(), "completely unrelated topic", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected empty result list, got %+v", hits)
	}
}

func TestSearch_ScoresAccumulateAcrossSignals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "a1", "HDFC Bank quarterly results", "2025-01-01T00:00:00Z",
		companyEntity("HDFC Bank", "hdfc bank"),
		sectorEntity("Banking", "banking"),
	)
	if err := f.index.Add(context.Background(), "a1", []float64{1, 0}); err != nil {
		t.Fatalf("index add failed: %v", err)
	}

	hits, err := f.service.Search(context.Background(), "HDFC Bank news", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %+v", hits)
	}

	// 0.6 company + 0.3 fixed sector boost + 1.0 vector (distance 0).
	want := companyWeight + companySectorBoostWeight + 1.0
	if math.Abs(hits[0].Score-want) > 1e-9 {
		t.Fatalf("expected accumulated score %f, got %f", want, hits[0].Score)
	}
	if hits[0].Explanation == "" {
		t.Fatalf("explanation missing on hit")
	}
}

func TestSearch_CompanyQueryBoostsBankingSector(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// A banking article with no relation to the queried company.
	f.seed(t, "bank1", "Lenders expand credit", "2025-01-01T00:00:00Z",
		sectorEntity("Banking", "banking"))

	hits, err := f.service.Search(context.Background(), "TCS wins large deal", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Article.ID != "bank1" {
		t.Fatalf("expected the fixed Banking boost to surface bank1, got %+v", hits)
	}
	if math.Abs(hits[0].Score-companySectorBoostWeight) > 1e-9 {
		t.Fatalf("expected score %f, got %f", companySectorBoostWeight, hits[0].Score)
	}
}

func TestSearch_SectorAndRegulatorWeights(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "it1", "Software exports climb", "2025-01-01T00:00:00Z",
		sectorEntity("IT", "it"))
	f.seed(t, "rbi1", "Policy review minutes released", "2025-01-02T00:00:00Z",
		model.Entity{ID: "REGULATOR:RBI", Type: model.EntityRegulator, Name: "RBI", Normalized: "rbi"})

	hits, err := f.service.Search(context.Background(), "RBI stance on IT", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	scores := map[string]float64{}
	for _, h := range hits {
		scores[h.Article.ID] = h.Score
	}
	if math.Abs(scores["it1"]-sectorWeight) > 1e-9 {
		t.Fatalf("unexpected sector score: %+v", scores)
	}
	if math.Abs(scores["rbi1"]-regulatorWeight) > 1e-9 {
		t.Fatalf("unexpected regulator score: %+v", scores)
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "b1", "Bank one", "2025-01-01T00:00:00Z", sectorEntity("Banking", "banking"))
	f.seed(t, "b2", "Bank two", "2025-01-02T00:00:00Z", sectorEntity("Banking", "banking"))
	f.seed(t, "b3", "Bank three", "2025-01-03T00:00:00Z", sectorEntity("Banking", "banking"))

	hits, err := f.service.Search(context.Background(), "Banking outlook", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected top_k truncation to 2, got %d", len(hits))
	}
}

func TestSearch_TiesKeepCollectionOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// Entity hit at 0.5 via the sector lookup.
	f.seed(t, "ent", "Sector story", "2025-01-02T00:00:00Z", sectorEntity("Pharma", "pharma"))
	// Vector hit also at 0.5: distance is 1 - cosine = 0.5.
	f.seed(t, "vec", "Vector story", "2025-01-01T00:00:00Z")
	if err := f.index.Add(context.Background(), "vec", []float64{0.5, math.Sqrt(0.75)}); err != nil {
		t.Fatalf("index add failed: %v", err)
	}

	hits, err := f.service.Search(context.Background(), "Pharma demand", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", hits)
	}
	if math.Abs(hits[0].Score-hits[1].Score) > 1e-9 {
		t.Fatalf("expected a score tie, got %f vs %f", hits[0].Score, hits[1].Score)
	}
	if hits[0].Article.ID != "ent" || hits[1].Article.ID != "vec" {
		t.Fatalf("ties must keep entity-before-vector order, got %+v", hits)
	}
}

func TestSearch_SkipsUnresolvableNeighbors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// Indexed id with no backing article in the store.
	if err := f.index.Add(context.Background(), "ghost", []float64{1, 0}); err != nil {
		t.Fatalf("index add failed: %v", err)
	}

	hits, err := f.service.Search(context.Background(), "anything at all", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("unresolvable neighbors must be skipped, got %+v", hits)
	}
}
