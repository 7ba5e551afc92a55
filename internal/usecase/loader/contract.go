package loader

import (
	"context"

	"github.com/kailas-cloud/esmirror/internal/domain"
)

// RecordWriter stores a batch of records under sequentially assigned ids.
type RecordWriter interface {
	PutRecords(ctx context.Context, index, typ string, records []domain.Record) ([]int, error)
}
