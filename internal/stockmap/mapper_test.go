package stockmap

import (
	"testing"

	"horse.fit/finwire/internal/model"
)

func TestDefaultMapper_Lookups(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	if got := m.SymbolsForCompany("HDFC Bank"); len(got) != 1 || got[0] != "HDFCBANK" {
		t.Fatalf("unexpected symbols for HDFC Bank: %v", got)
	}
	if got := m.SectorsOfCompany("Infosys"); len(got) != 1 || got[0] != "IT" {
		t.Fatalf("unexpected sectors for Infosys: %v", got)
	}
	if got := m.SectorChildren("Financial Services"); len(got) != 1 || got[0] != "Banking" {
		t.Fatalf("unexpected children for Financial Services: %v", got)
	}
	if got := m.SymbolsForCompany("Unknown Corp"); got != nil {
		t.Fatalf("unmapped company must return nil, got %v", got)
	}
}

func TestImpacts_DirectCompany(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	impacts := m.Impacts("a1", []model.Entity{
		{Type: model.EntityCompany, Name: "HDFC Bank", Normalized: "hdfc bank"},
	})

	if len(impacts) != 1 {
		t.Fatalf("expected 1 impact, got %v", impacts)
	}
	got := impacts[0]
	if got.Symbol != "HDFCBANK" || got.Confidence != DirectConfidence || got.Type != "direct" || got.ArticleID != "a1" {
		t.Fatalf("unexpected impact: %+v", got)
	}
}

func TestImpacts_SectorFansOut(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	impacts := m.Impacts("a1", []model.Entity{
		{Type: model.EntitySector, Name: "IT", Normalized: "it"},
	})

	symbols := map[string]bool{}
	for _, i := range impacts {
		if i.Confidence != SectorConfidence || i.Type != "sector" {
			t.Fatalf("unexpected sector impact: %+v", i)
		}
		symbols[i.Symbol] = true
	}
	for _, want := range []string{"TCS", "INFY", "WIPRO", "HCLTECH"} {
		if !symbols[want] {
			t.Fatalf("missing IT sector symbol %s in %v", want, symbols)
		}
	}
}

func TestImpacts_RegulatorTouchesUniverse(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	impacts := m.Impacts("a1", []model.Entity{
		{Type: model.EntityRegulator, Name: "RBI", Normalized: "rbi"},
	})

	if len(impacts) == 0 {
		t.Fatalf("regulator entity must fan out to the mapped universe")
	}
	for _, i := range impacts {
		if i.Confidence != RegulatorConfidence || i.Type != "regulator" {
			t.Fatalf("unexpected regulator impact: %+v", i)
		}
	}
}

func TestImpacts_SymbolRecordedOncePerArticle(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	impacts := m.Impacts("a1", []model.Entity{
		{Type: model.EntityCompany, Name: "HDFC Bank", Normalized: "hdfc bank"},
		{Type: model.EntitySector, Name: "Banking", Normalized: "banking"},
	})

	var hdfc []model.StockImpact
	for _, i := range impacts {
		if i.Symbol == "HDFCBANK" {
			hdfc = append(hdfc, i)
		}
	}
	if len(hdfc) != 1 {
		t.Fatalf("symbol must be recorded once per article, got %v", hdfc)
	}
	if hdfc[0].Type != "direct" {
		t.Fatalf("first-reached grade must win, got %+v", hdfc[0])
	}
}

func TestImpacts_Deterministic(t *testing.T) {
	t.Parallel()

	m := NewDefaultMapper()
	entities := []model.Entity{{Type: model.EntitySector, Name: "Banking", Normalized: "banking"}}
	first := m.Impacts("a1", entities)
	for run := 0; run < 5; run++ {
		again := m.Impacts("a1", entities)
		if len(again) != len(first) {
			t.Fatalf("impact count varies across runs")
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("impact order varies across runs: %+v vs %+v", first[i], again[i])
			}
		}
	}
}
