// Package vectorstore provides embedded vector storage for the response
// cache's semantic fingerprints.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrMissingEmbedding indicates a document without a precomputed vector.
	ErrMissingEmbedding = errors.New("document missing embedding")
)

// Document is a fingerprinted text to be stored.
//
// Embeddings are always precomputed by the caller (via the embedding
// gateway) so the store itself never blocks on a provider.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the text content.
	Content string

	// Metadata contains additional key-value pairs.
	Metadata map[string]string

	// Embedding is the precomputed vector. Required.
	Embedding []float32
}

// SearchResult is one similarity search hit.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the document text content.
	Content string

	// Score is the cosine similarity (higher = more similar).
	Score float32

	// Metadata contains the document metadata.
	Metadata map[string]string
}

// Store is the interface for vector storage operations.
//
// Implementations are embedded; there is no external database service.
type Store interface {
	// AddDocuments stores documents with their precomputed embeddings.
	AddDocuments(ctx context.Context, docs []Document) error

	// SearchByVector returns up to k documents most similar to the vector,
	// ordered by similarity score (highest first).
	SearchByVector(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// DeleteDocuments deletes documents by their IDs. Missing IDs are ignored.
	DeleteDocuments(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Reset removes every stored document. Used to rebuild the index from
	// the durable record log at startup.
	Reset(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
