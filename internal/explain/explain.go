// Package explain produces per-hit relevance explanations for query
// results.
package explain

import "fmt"

// Source turns a query and a matched article title into a short
// human-readable relevance explanation.
type Source interface {
	Explain(query, title string) string
}

// Template is the default Source. It renders a fixed sentence rather than
// calling a language model, which keeps the query path deterministic and
// dependency-free.
type Template struct{}

func NewTemplate() *Template { return &Template{} }

func (*Template) Explain(query, title string) string {
	return fmt.Sprintf("Relevant because it matches entities/themes in query '%s'. Article: %s.", query, title)
}
