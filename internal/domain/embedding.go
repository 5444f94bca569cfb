package domain

import "context"

// EmbeddingResult is the output of an embedding computation.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text for a named vector space's embedding strategy.
type Embedder interface {
	Embed(ctx context.Context, text, space string) (EmbeddingResult, error)
}
