// Package payloadschema validates raw article payloads at the ingest
// boundary before they reach the clustering core.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/finwire/internal/model"
)

//go:embed news_article.schema.json
var newsArticleSchemaJSON string

// RawArticle is one validated ingest payload. Optional fields stay nil when
// absent so defaulting is explicit in ToArticle.
type RawArticle struct {
	ID          *string        `json:"id,omitempty"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Source      string         `json:"source"`
	PublishedAt string         `json:"published_at"`
	URL         string         `json:"url"`
	Category    *string        `json:"category,omitempty"`
	Language    *string        `json:"language,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateNewsArticlePayload decodes and schema-checks one raw article.
func ValidateNewsArticlePayload(payload json.RawMessage) (*RawArticle, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var raw RawArticle
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

// ToArticle converts a validated payload into the canonical article shape.
// The id falls back to the URL and then the title when absent.
func (r *RawArticle) ToArticle() model.Article {
	id := ""
	if r.ID != nil {
		id = strings.TrimSpace(*r.ID)
	}
	if id == "" {
		id = strings.TrimSpace(r.URL)
	}
	if id == "" {
		id = strings.TrimSpace(r.Title)
	}

	article := model.Article{
		ID:          id,
		Title:       strings.TrimSpace(r.Title),
		Content:     strings.TrimSpace(r.Content),
		Source:      r.Source,
		PublishedAt: r.PublishedAt,
		URL:         r.URL,
		Metadata:    r.Metadata,
	}
	if r.Category != nil {
		article.Category = *r.Category
	}
	if r.Language != nil {
		article.Language = *r.Language
	}
	return article
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("news_article.schema.json", strings.NewReader(newsArticleSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("news_article.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(raw *RawArticle) error {
	if raw == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(raw.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(raw.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(raw.URL) == "" && (raw.ID == nil || strings.TrimSpace(*raw.ID) == "") {
		return fmt.Errorf("payload needs an id or a url")
	}

	return nil
}
