package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/dedup"
	"horse.fit/finwire/internal/embed"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/stockmap"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
)

func newTestService(t *testing.T) (*Service, *store.Memory, *vectorindex.Memory) {
	t.Helper()
	st := store.NewMemory()
	idx := vectorindex.NewMemory()
	svc := NewService(
		dedup.NewClustererForSource(embed.NewHashingSource(128)),
		ner.NewKeywordRecognizer(ner.DefaultGazetteer()),
		stockmap.NewDefaultMapper(),
		st,
		idx,
		zerolog.Nop(),
	)
	return svc, st, idx
}

func TestIngestArticles_EmptyBatch(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	result, err := svc.IngestArticles(context.Background(), nil)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.RunID == "" {
		t.Fatalf("run id must always be assigned")
	}
	if result.Received != 0 || result.Ingested != 0 || len(result.DuplicateGroups) != 0 {
		t.Fatalf("unexpected empty-batch result: %+v", result)
	}
}

func TestIngestArticles_EndToEnd(t *testing.T) {
	t.Parallel()

	svc, st, idx := newTestService(t)
	batch := []model.Article{
		{ID: "a1", Title: "RBI raises repo rate by 25 bps", Content: "HDFC Bank and other lenders react.", Language: "en", PublishedAt: "2025-06-06T09:00:00Z"},
		{ID: "a2", Title: "Reserve Bank hikes policy rate 25bps", Content: "Banks under pressure.", Language: "en", PublishedAt: "2025-06-06T09:05:00Z"},
		{ID: "a3", Title: "TCS wins large European retail deal", Content: "IT major lands a client.", Language: "en", PublishedAt: "2025-06-06T10:00:00Z"},
	}

	result, err := svc.IngestArticles(context.Background(), batch)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.Received != 3 || result.Unique != 2 || result.Ingested != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.DuplicateGroups) != 1 || len(result.DuplicateGroups[0]) != 2 {
		t.Fatalf("expected one duplicate pair, got %+v", result.DuplicateGroups)
	}

	// Only the representative of the duplicate pair is stored.
	if a, _ := st.GetArticle(context.Background(), "a1"); a == nil {
		t.Fatalf("representative a1 must be stored")
	}
	if a, _ := st.GetArticle(context.Background(), "a2"); a != nil {
		t.Fatalf("duplicate a2 must not be stored")
	}

	// Entity links feed the lookup paths.
	hdfcNews, err := st.ByCompany(context.Background(), "hdfc bank", 10)
	if err != nil {
		t.Fatalf("company lookup failed: %v", err)
	}
	if len(hdfcNews) != 1 || hdfcNews[0].ID != "a1" {
		t.Fatalf("expected a1 under hdfc bank, got %+v", hdfcNews)
	}

	// TCS is impacted directly by a3 and via the RBI regulator fan-out by
	// a1, most recent first.
	tcsNews, err := st.BySymbol(context.Background(), "TCS", 10)
	if err != nil {
		t.Fatalf("symbol lookup failed: %v", err)
	}
	if len(tcsNews) != 2 || tcsNews[0].ID != "a3" || tcsNews[1].ID != "a1" {
		t.Fatalf("expected [a3 a1] under TCS, got %+v", tcsNews)
	}

	// Embeddings of representatives are indexed.
	vectors, err := embed.NewHashingSource(128).Embed(context.Background(), []string{"probe"})
	if err != nil {
		t.Fatalf("probe embed failed: %v", err)
	}
	neighbors, err := idx.Query(context.Background(), vectors[0], 10)
	if err != nil {
		t.Fatalf("index query failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 indexed representatives, got %d", len(neighbors))
	}

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ArticleCount != 2 || stats.DuplicateCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestIngestArticles_NonEnglishSkipsEntityExtraction(t *testing.T) {
	t.Parallel()

	svc, st, idx := newTestService(t)
	batch := []model.Article{
		{ID: "hi1", Title: "TCS ने बड़ा सौदा जीता", Content: "आईटी कंपनी को यूरोप में नया ग्राहक मिला।", Language: "hi", PublishedAt: "2025-06-06T09:00:00Z"},
	}

	result, err := svc.IngestArticles(context.Background(), batch)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.Ingested != 1 {
		t.Fatalf("non-English article must still be ingested: %+v", result)
	}

	// Stored and indexed, but no entities or impacts derived from it.
	if a, _ := st.GetArticle(context.Background(), "hi1"); a == nil {
		t.Fatalf("article must be stored")
	}
	vectors, err := embed.NewHashingSource(128).Embed(context.Background(), []string{"probe"})
	if err != nil {
		t.Fatalf("probe embed failed: %v", err)
	}
	if neighbors, _ := idx.Query(context.Background(), vectors[0], 10); len(neighbors) != 1 {
		t.Fatalf("article must be indexed, got %d neighbors", len(neighbors))
	}

	tcsNews, err := st.ByCompany(context.Background(), "tcs", 10)
	if err != nil {
		t.Fatalf("company lookup failed: %v", err)
	}
	if len(tcsNews) != 0 {
		t.Fatalf("no entity links expected for a Hindi article, got %+v", tcsNews)
	}
	impacted, err := st.BySymbol(context.Background(), "TCS", 10)
	if err != nil {
		t.Fatalf("symbol lookup failed: %v", err)
	}
	if len(impacted) != 0 {
		t.Fatalf("no stock impacts expected for a Hindi article, got %+v", impacted)
	}

	entities, err := st.ListEntities(context.Background())
	if err != nil {
		t.Fatalf("entity listing failed: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("no entities expected, got %+v", entities)
	}
}

func TestIngestPayloads_SkipsInvalid(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	payloads := []json.RawMessage{
		json.RawMessage(`{"id":"ok-1","title":"Sun Pharma gets USFDA approval","content":"Clearance granted.","source":"moneywire","published_at":"2025-06-06T09:00:00Z","url":"https://example.com/ok-1","language":"en"}`),
		json.RawMessage(`{"title":"   "}`),
		json.RawMessage(`not json`),
	}

	result, err := svc.IngestPayloads(context.Background(), payloads)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.Rejected != 2 {
		t.Fatalf("expected 2 rejected payloads, got %d", result.Rejected)
	}
	if result.Ingested != 1 {
		t.Fatalf("expected 1 ingested article, got %d", result.Ingested)
	}
}

// failingBatcher fails every fetch, to prove the loop survives.
type failingBatcher struct {
	mu    sync.Mutex
	calls int
}

func (f *failingBatcher) FetchAll(context.Context, []string) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, errors.New("upstream down")
}

func (f *failingBatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_SurvivesFailuresAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	batcher := &failingBatcher{}
	poller := NewPoller(svc, batcher, []string{"https://example.com/rss"}, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for batcher.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("poller did not keep running after failures: %d calls", batcher.callCount())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop after cancellation")
	}
}
