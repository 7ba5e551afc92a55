package document

import (
	"context"

	"github.com/kailas-cloud/esmirror/internal/domain"
)

// Mirror is the local bookkeeping of written index/type/id triples.
type Mirror interface {
	Register(index, typ string, id int) bool
	Contains(index, typ string, id int) bool
	HasType(index, typ string) bool
	Reserve(index, typ string, n int) int
	Release(index, typ string, base int)
	Count(index, typ string) int
}

// Transport issues raw calls against the search service.
type Transport interface {
	Put(ctx context.Context, path string, body any) (*domain.Response, error)
	Get(ctx context.Context, path string) (*domain.Response, error)
	Search(ctx context.Context, path string) (*domain.Response, error)
}
