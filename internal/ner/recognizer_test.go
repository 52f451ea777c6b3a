package ner

import (
	"testing"

	"horse.fit/finwire/internal/model"
)

func TestDefaultGazetteer_Populated(t *testing.T) {
	t.Parallel()

	g := DefaultGazetteer()
	if len(g.Companies) == 0 || len(g.Regulators) == 0 || len(g.Sectors) == 0 {
		t.Fatalf("embedded gazetteer is missing a keyword list: %+v", g)
	}
}

func TestExtract_CompanyAndRegulator(t *testing.T) {
	t.Parallel()

	r := NewKeywordRecognizer(DefaultGazetteer())
	entities := r.Extract("RBI asks HDFC Bank to raise provisions for unsecured loans")

	byType := map[model.EntityType][]string{}
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e.Name)
	}

	if got := byType[model.EntityCompany]; len(got) != 1 || got[0] != "HDFC Bank" {
		t.Fatalf("unexpected companies: %v", got)
	}
	if got := byType[model.EntityRegulator]; len(got) != 1 || got[0] != "RBI" {
		t.Fatalf("unexpected regulators: %v", got)
	}
}

func TestExtract_CaseInsensitiveWholeWord(t *testing.T) {
	t.Parallel()

	r := NewKeywordRecognizer(Gazetteer{Companies: []string{"TCS"}})
	if got := r.Extract("tcs bags large deal"); len(got) != 1 {
		t.Fatalf("lowercase mention must match: %v", got)
	}
	if got := r.Extract("NETCSCAPE announces results"); len(got) != 0 {
		t.Fatalf("substring must not match: %v", got)
	}
}

func TestExtract_DeduplicatesNormalizedVariants(t *testing.T) {
	t.Parallel()

	r := NewKeywordRecognizer(DefaultGazetteer())
	entities := r.Extract("Reserve Bank of India, also called the RBI, held rates steady")

	regulators := 0
	for _, e := range entities {
		if e.Type == model.EntityRegulator {
			regulators++
			if e.Normalized != "rbi" {
				t.Fatalf("regulator variant not normalized: %+v", e)
			}
		}
	}
	if regulators != 1 {
		t.Fatalf("variants folding to rbi must dedupe to one entity, got %d", regulators)
	}
}

func TestExtract_SectorNormalization(t *testing.T) {
	t.Parallel()

	r := NewKeywordRecognizer(DefaultGazetteer())
	entities := r.Extract("Auto sales climb across the Automobile sector")

	sectors := 0
	for _, e := range entities {
		if e.Type == model.EntitySector {
			sectors++
			if e.Normalized != "automobile" {
				t.Fatalf("sector variant not normalized: %+v", e)
			}
		}
	}
	if sectors != 1 {
		t.Fatalf("auto variants must dedupe to one sector entity, got %d", sectors)
	}
}

func TestNormalizeEntityName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Central Bank":   "rbi",
		" Reserve Bank ": "rbi",
		"Auto":           "automobile",
		"Infosys":        "infosys",
	}
	for in, want := range cases {
		if got := NormalizeEntityName(in); got != want {
			t.Fatalf("NormalizeEntityName(%q) = %q, want %q", in, got, want)
		}
	}
}
