// Package llm provides embedding-model clients for the Notewell context
// engine. All providers speak the same batch contract: an ordered list of
// texts in, one equal-dimensionality vector per text out, failing as a unit.
package llm

import "context"

// EmbeddingClient generates vector embeddings for batches of text.
//
// EmbedBatch must return exactly one vector per input, in input order, or an
// error; partial results are never returned. A single-text embedding is a
// batch of one.
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
