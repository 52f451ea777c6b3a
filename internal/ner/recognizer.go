// Package ner recognizes financial named entities through a curated keyword
// gazetteer. Matching is deterministic and cheap, which keeps the ingest and
// query paths free of model-serving dependencies.
package ner

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"horse.fit/finwire/internal/model"
)

//go:embed gazetteer.yaml
var defaultGazetteerYAML []byte

// Recognizer extracts named entities from free text. Results are
// deduplicated by (type, normalized-or-lowercased-name).
type Recognizer interface {
	Extract(text string) []model.Entity
}

// Gazetteer holds the keyword lists driving recognition, one list per
// entity type.
type Gazetteer struct {
	Companies  []string `yaml:"companies"`
	Regulators []string `yaml:"regulators"`
	Sectors    []string `yaml:"sectors"`
}

// DefaultGazetteer returns the built-in Indian-market keyword lists.
func DefaultGazetteer() Gazetteer {
	var g Gazetteer
	// The embedded file is validated by tests, so a decode failure here
	// would be a build defect.
	if err := yaml.Unmarshal(defaultGazetteerYAML, &g); err != nil {
		panic(fmt.Sprintf("ner: embedded gazetteer is invalid: %v", err))
	}
	return g
}

// LoadGazetteer reads keyword lists from a YAML file.
func LoadGazetteer(path string) (Gazetteer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Gazetteer{}, fmt.Errorf("read gazetteer %s: %w", path, err)
	}
	var g Gazetteer
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return Gazetteer{}, fmt.Errorf("decode gazetteer %s: %w", path, err)
	}
	return g, nil
}

type keywordMatcher struct {
	keyword string
	pattern *regexp.Regexp
}

// KeywordRecognizer matches gazetteer keywords as case-insensitive whole
// words. Keyword order within a type is preserved in the output.
type KeywordRecognizer struct {
	companies  []keywordMatcher
	regulators []keywordMatcher
	sectors    []keywordMatcher
}

func NewKeywordRecognizer(g Gazetteer) *KeywordRecognizer {
	return &KeywordRecognizer{
		companies:  compileMatchers(g.Companies),
		regulators: compileMatchers(g.Regulators),
		sectors:    compileMatchers(g.Sectors),
	}
}

func compileMatchers(keywords []string) []keywordMatcher {
	matchers := make([]keywordMatcher, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		matchers = append(matchers, keywordMatcher{keyword: kw, pattern: pattern})
	}
	return matchers
}

// Extract scans text against every keyword list and returns the matched
// entities in gazetteer order, companies first, then regulators, then
// sectors, deduplicated by (type, canonical name).
func (r *KeywordRecognizer) Extract(text string) []model.Entity {
	var out []model.Entity
	seen := map[string]struct{}{}

	appendMatches := func(matchers []keywordMatcher, entityType model.EntityType) {
		for _, m := range matchers {
			if !m.pattern.MatchString(text) {
				continue
			}
			normalized := NormalizeEntityName(m.keyword)
			key := string(entityType) + ":" + normalized
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, model.Entity{
				ID:         fmt.Sprintf("%s:%s", entityType, m.keyword),
				Type:       entityType,
				Name:       m.keyword,
				Normalized: normalized,
			})
		}
	}

	appendMatches(r.companies, model.EntityCompany)
	appendMatches(r.regulators, model.EntityRegulator)
	appendMatches(r.sectors, model.EntitySector)
	return out
}

// NormalizeEntityName folds entity-name variants onto their canonical
// lookup form.
func NormalizeEntityName(name string) string {
	m := strings.ToLower(strings.TrimSpace(name))
	switch m {
	case "reserve bank", "reserve bank of india", "central bank":
		return "rbi"
	case "auto", "automobile":
		return "automobile"
	}
	return m
}
