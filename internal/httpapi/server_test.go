package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/dedup"
	"horse.fit/finwire/internal/embed"
	"horse.fit/finwire/internal/explain"
	"horse.fit/finwire/internal/ingest"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/query"
	"horse.fit/finwire/internal/stockmap"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
)

type stubBatcher struct {
	articles []model.Article
	calls    int
}

func (b *stubBatcher) FetchAll(context.Context, []string) ([]model.Article, error) {
	b.calls++
	return b.articles, nil
}

type testAPI struct {
	echo    *echo.Echo
	store   *store.Memory
	batcher *stubBatcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := store.NewMemory()
	idx := vectorindex.NewMemory()
	source := embed.NewHashingSource(128)
	recognizer := ner.NewKeywordRecognizer(ner.DefaultGazetteer())

	ingestSvc := ingest.NewService(
		dedup.NewClustererForSource(source),
		recognizer,
		stockmap.NewDefaultMapper(),
		st,
		idx,
		zerolog.Nop(),
	)
	querySvc := query.NewService(recognizer, st, source, idx, explain.NewTemplate(), zerolog.Nop())

	batcher := &stubBatcher{}
	server := NewServer(ingestSvc, querySvc, st, batcher, []string{"https://example.com/rss"}, zerolog.Nop(), Options{})
	return &testAPI{echo: server.buildEcho(), store: st, batcher: batcher}
}

func (a *testAPI) request(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	var envelope jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not a json envelope: %v\n%s", err, rec.Body.String())
	}
	return rec, envelope
}

const validArticleBody = `{
	"id": "art-1",
	"title": "HDFC Bank posts record quarterly profit",
	"content": "The lender beat street estimates.",
	"source": "moneywire",
	"published_at": "2025-06-06T09:00:00Z",
	"url": "https://example.com/art-1",
	"category": "Banking",
	"language": "en"
}`

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, envelope := api.request(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if envelope.Status != "success" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestProcessThenGetArticle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, envelope := api.request(t, http.MethodPost, "/api/v1/news/process", validArticleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}

	rec, envelope = api.request(t, http.MethodGet, "/api/v1/news/art-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %+v", envelope.Data)
	}
	if data["id"] != "art-1" {
		t.Fatalf("expected article art-1, got %+v", data)
	}
}

func TestProcessRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, envelope := api.request(t, http.MethodPost, "/api/v1/news/process", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if envelope.Status != "fail" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, envelope := api.request(t, http.MethodGet, "/api/v1/news/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if envelope.Status != "fail" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestQueryEndpoint(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	if _, rec := api.request(t, http.MethodPost, "/api/v1/news/process", validArticleBody); rec.Status != "success" {
		t.Fatalf("seed article rejected: %+v", rec)
	}

	rec, envelope := api.request(t, http.MethodGet, "/api/v1/query?q=HDFC+Bank+results&top_k=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %+v", envelope.Data)
	}
	results, ok := data["results"].([]any)
	if !ok || len(results) == 0 {
		t.Fatalf("expected at least one result, got %+v", data)
	}
}

func TestQueryRequiresText(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, _ := api.request(t, http.MethodGet, "/api/v1/query", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQueryRejectsBadTopK(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec, _ := api.request(t, http.MethodGet, "/api/v1/query?q=anything&top_k=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStockAndSectorNews(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	if _, rec := api.request(t, http.MethodPost, "/api/v1/news/process", validArticleBody); rec.Status != "success" {
		t.Fatalf("seed article rejected: %+v", rec)
	}

	rec, envelope := api.request(t, http.MethodGet, "/api/v1/stocks/HDFCBANK/news", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := envelope.Data.(map[string]any)
	if articles, ok := data["articles"].([]any); !ok || len(articles) != 1 {
		t.Fatalf("expected one article under HDFCBANK, got %+v", data)
	}

	rec, envelope = api.request(t, http.MethodGet, "/api/v1/sectors/Banking/news", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data = envelope.Data.(map[string]any)
	if articles, ok := data["articles"].([]any); !ok || len(articles) != 1 {
		t.Fatalf("expected one article under Banking, got %+v", data)
	}
}

func TestIngestEndpointUsesConfiguredFeeds(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.batcher.articles = []model.Article{
		{ID: "f1", Title: "SEBI tightens disclosure norms", Content: "Markets regulator update.", Language: "en", PublishedAt: "2025-06-06T11:00:00Z"},
	}

	rec, envelope := api.request(t, http.MethodPost, "/api/v1/news/ingest", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if api.batcher.calls != 1 {
		t.Fatalf("expected one fetch call, got %d", api.batcher.calls)
	}

	if a, _ := api.store.GetArticle(context.Background(), "f1"); a == nil {
		t.Fatalf("fetched article must be stored")
	}
}

func TestIngestEndpointWithoutFeeds(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	st := store.NewMemory()
	idx := vectorindex.NewMemory()
	source := embed.NewHashingSource(128)
	recognizer := ner.NewKeywordRecognizer(ner.DefaultGazetteer())
	ingestSvc := ingest.NewService(
		dedup.NewClustererForSource(source),
		recognizer,
		stockmap.NewDefaultMapper(),
		st,
		idx,
		zerolog.Nop(),
	)
	querySvc := query.NewService(recognizer, st, source, idx, explain.NewTemplate(), zerolog.Nop())
	server := NewServer(ingestSvc, querySvc, st, nil, nil, zerolog.Nop(), Options{})
	api.echo = server.buildEcho()

	rec, _ := api.request(t, http.MethodPost, "/api/v1/news/ingest", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when no feeds are configured, got %d", rec.Code)
	}
}
