// Package stockmap resolves recognized entities to traded stock symbols and
// derives per-article stock impact records.
package stockmap

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"horse.fit/finwire/internal/model"
)

//go:embed mappings.yaml
var defaultMappingsYAML []byte

// Impact confidence grades, by how directly the entity names the stock.
const (
	DirectConfidence    = 1.0
	SectorConfidence    = 0.7
	RegulatorConfidence = 0.4
)

// Mappings is the on-disk shape of the stock mapping tables.
type Mappings struct {
	Companies       map[string][]string `yaml:"companies"`
	CompanyToSector map[string][]string `yaml:"company_to_sector"`
	SectorHierarchy map[string][]string `yaml:"sector_hierarchy"`
}

// Mapper answers company/sector/symbol lookups over loaded mapping tables.
// Company iteration order is fixed at load time so derived impacts are
// deterministic.
type Mapper struct {
	mappings     Mappings
	companyOrder []string
}

// NewMapper builds a Mapper over the given tables.
func NewMapper(m Mappings) *Mapper {
	if m.Companies == nil {
		m.Companies = map[string][]string{}
	}
	if m.CompanyToSector == nil {
		m.CompanyToSector = map[string][]string{}
	}
	if m.SectorHierarchy == nil {
		m.SectorHierarchy = map[string][]string{}
	}
	order := make([]string, 0, len(m.Companies))
	for name := range m.Companies {
		order = append(order, name)
	}
	sort.Strings(order)
	return &Mapper{mappings: m, companyOrder: order}
}

// NewDefaultMapper returns a Mapper over the embedded NSE mapping tables.
func NewDefaultMapper() *Mapper {
	var m Mappings
	if err := yaml.Unmarshal(defaultMappingsYAML, &m); err != nil {
		panic(fmt.Sprintf("stockmap: embedded mappings are invalid: %v", err))
	}
	return NewMapper(m)
}

// LoadMapper reads mapping tables from a YAML file.
func LoadMapper(path string) (*Mapper, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stock mappings %s: %w", path, err)
	}
	var m Mappings
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode stock mappings %s: %w", path, err)
	}
	return NewMapper(m), nil
}

// SymbolsForCompany returns the traded symbols of a company name, nil when
// unmapped.
func (m *Mapper) SymbolsForCompany(name string) []string {
	return m.mappings.Companies[name]
}

// SectorsOfCompany returns the sector memberships of a company name.
func (m *Mapper) SectorsOfCompany(name string) []string {
	return m.mappings.CompanyToSector[name]
}

// SectorChildren resolves an umbrella sector to its child sectors.
func (m *Mapper) SectorChildren(sector string) []string {
	return m.mappings.SectorHierarchy[sector]
}

// Impacts derives stock impact records for one article from its recognized
// entities. A company entity maps to its own symbols at full confidence, a
// sector entity fans out to every member company at reduced confidence, and
// a regulator entity touches the whole mapped universe at low confidence.
// Each symbol is recorded at most once per article, keeping the first
// (highest priority by entity order) grade it was reached with.
func (m *Mapper) Impacts(articleID string, entities []model.Entity) []model.StockImpact {
	var impacts []model.StockImpact
	seen := map[string]struct{}{}

	add := func(symbol string, confidence float64, impactType string) {
		if _, dup := seen[symbol]; dup {
			return
		}
		seen[symbol] = struct{}{}
		impacts = append(impacts, model.StockImpact{
			ArticleID:  articleID,
			Symbol:     symbol,
			Confidence: confidence,
			Type:       impactType,
		})
	}

	for _, e := range entities {
		switch e.Type {
		case model.EntityCompany:
			symbols := m.SymbolsForCompany(e.Name)
			if len(symbols) == 0 {
				symbols = m.SymbolsForCompany(e.Normalized)
			}
			for _, s := range symbols {
				add(s, DirectConfidence, "direct")
			}
		case model.EntitySector:
			sector := e.LookupName()
			for _, company := range m.companyOrder {
				if !containsFold(m.SectorsOfCompany(company), sector) {
					continue
				}
				for _, s := range m.SymbolsForCompany(company) {
					add(s, SectorConfidence, "sector")
				}
			}
		case model.EntityRegulator:
			for _, company := range m.companyOrder {
				for _, s := range m.SymbolsForCompany(company) {
					add(s, RegulatorConfidence, "regulator")
				}
			}
		}
	}
	return impacts
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
