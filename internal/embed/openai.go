package embed

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	DefaultOpenAIDimensions = 1536
)

// OpenAISource embeds through the OpenAI embeddings API (or any
// API-compatible endpoint via base URL override).
type OpenAISource struct {
	client     openai.Client
	model      string
	dimensions int
}

// OpenAIOptions configures the OpenAI embedding backend. APIKey falls back
// to OPENAI_API_KEY when empty.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

func NewOpenAISource(opts OpenAIOptions) *OpenAISource {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultOpenAIDimensions
	}

	requestOpts := make([]option.RequestOption, 0, 2)
	if opts.APIKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAISource{
		client:     openai.NewClient(requestOpts...),
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}
}

func (s *OpenAISource) Dimensions() int { return s.dimensions }

func (s *OpenAISource) Trained() bool { return true }

func (s *OpenAISource) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: openai.Int(int64(s.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings count mismatch: requested=%d returned=%d", len(texts), len(resp.Data))
	}

	vectors := make([][]float64, len(resp.Data))
	for _, row := range resp.Data {
		if row.Index < 0 || int(row.Index) >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings returned out-of-range index %d", row.Index)
		}
		vectors[row.Index] = row.Embedding
	}
	return vectors, nil
}
