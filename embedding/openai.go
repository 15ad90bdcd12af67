package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/pkoukk/tiktoken-go"
)

// OpenAIEmbedder is a BatchEmbedder backed by the OpenAI embeddings API.
// Each EmbedBatch call maps to a single CreateEmbeddings request.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dims      int
	maxTokens int
	tokenizer *tiktoken.Tiktoken
	logger    *slog.Logger
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithOpenAIClient overrides the API client, e.g. to point at a proxy.
func WithOpenAIClient(client *openai.Client) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.client = client
	}
}

// WithMaxTokens caps the token length of each input; longer texts are
// truncated before being sent.
func WithMaxTokens(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.maxTokens = n
	}
}

// NewOpenAIEmbedder creates an embedder for the given model. An empty apiKey
// falls back to OPENAI_API_KEY; an empty modelName falls back to
// text-embedding-3-small (1536 dimensions).
func NewOpenAIEmbedder(apiKey, modelName string, dims int, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	model := openai.SmallEmbedding3
	if modelName != "" {
		model = openai.EmbeddingModel(modelName)
	}
	if dims <= 0 {
		dims = 1536
	}

	tokenizer, err := tiktoken.EncodingForModel(string(model))
	if err != nil {
		// Unknown model names still get the encoding every current
		// embedding model uses.
		tokenizer, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		model:     model,
		dims:      dims,
		maxTokens: 8191,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EmbedBatch sends one embeddings request for the whole batch and returns the
// vectors in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = e.truncate(text)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: e.model,
	})
	if err != nil {
		e.logger.Error("openai embedding failed", "model", e.model, "count", len(texts), "error", err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the configured vector length.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// truncate cuts text to maxTokens tokens.
func (e *OpenAIEmbedder) truncate(text string) string {
	if e.maxTokens <= 0 {
		return text
	}
	tokens := e.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= e.maxTokens {
		return text
	}
	return e.tokenizer.Decode(tokens[:e.maxTokens])
}

var _ BatchEmbedder = (*OpenAIEmbedder)(nil)
