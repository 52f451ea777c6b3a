package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	DefaultServiceEndpoint       = "http://127.0.0.1:8844/embed"
	DefaultServiceDimensions     = 1024
	DefaultServiceMaxLength      = 512
	DefaultServiceRequestTimeout = 45 * time.Second
)

// ServiceOptions configures the HTTP embedding backend.
type ServiceOptions struct {
	Endpoint       string
	Dimensions     int
	MaxLength      int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// ServiceSource talks to a trained embedding model behind an HTTP endpoint.
// Both the bare `{"texts": ...}` contract and the OpenAI-compatible
// `/v1/embeddings` contract are supported.
type ServiceSource struct {
	opts ServiceOptions
}

type serviceRequest struct {
	Texts     []string `json:"texts,omitempty"`
	Input     []string `json:"input,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type serviceResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func NewServiceSource(opts ServiceOptions) *ServiceSource {
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultServiceDimensions
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultServiceMaxLength
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultServiceRequestTimeout
	}
	opts.Endpoint = normalizeEndpoint(opts.Endpoint)
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &ServiceSource{opts: opts}
}

func (s *ServiceSource) Dimensions() int { return s.opts.Dimensions }

func (s *ServiceSource) Trained() bool { return true }

func (s *ServiceSource) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := serviceRequest{Texts: texts, MaxLength: s.opts.MaxLength}
	if parsed, err := url.Parse(s.opts.Endpoint); err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings") {
		payload = serviceRequest{Input: texts}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, s.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed serviceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}

	return vectors, nil
}

func normalizeEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultServiceEndpoint
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/embed"
	}
	return parsed.String()
}
