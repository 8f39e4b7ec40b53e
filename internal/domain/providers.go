package domain

import (
	"context"
	"errors"
)

var (
	ErrEmptyText            = errors.New("embedding: empty text")
	ErrEmbeddingUnavailable = errors.New("embedding: provider unavailable")
)

// EmbeddingClient turns text into a fixed-length vector. It returns
// ErrEmptyText for blank input and wraps ErrEmbeddingUnavailable for
// transport or upstream failures.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	MinReputation = 0
	MaxReputation = 100
)

// ReputationProvider returns a user's reputation in [0, 100].
type ReputationProvider interface {
	GetScore(ctx context.Context, userID string) (float64, error)
}

var ErrPostNotFound = errors.New("post: not found")

// PostAuthorProvider resolves who wrote a platform post. It returns
// ErrPostNotFound when the post is unknown.
type PostAuthorProvider interface {
	PostAuthor(ctx context.Context, postID string) (string, error)
}
