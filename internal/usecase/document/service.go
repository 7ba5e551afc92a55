package document

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esmirror/internal/domain"
	logpkg "github.com/kailas-cloud/esmirror/internal/logger"
	"github.com/kailas-cloud/esmirror/internal/transport/elastic"
)

// Service proxies document writes, reads and searches to the search service,
// validating reads against the local mirror.
//
// Validation only consults local bookkeeping: a document written by another
// client exists remotely but is still rejected here.
type Service struct {
	mirror    Mirror
	transport Transport
	gauge     *prometheus.GaugeVec
}

// New creates a document service.
func New(mirror Mirror, transport Transport) *Service {
	return &Service{mirror: mirror, transport: transport}
}

// WithMirrorGauge reports the id count of every written index/type pair to g,
// labelled by index and type. The gauge must belong to this service's mirror
// alone: two mirrors sharing one gauge overwrite each other's values.
func (s *Service) WithMirrorGauge(g *prometheus.GaugeVec) *Service {
	s.gauge = g
	return s
}

// Put registers id in the mirror and stores data under index/type/id.
// The id is registered before the request, so it stays known even if the write fails.
func (s *Service) Put(ctx context.Context, index, typ string, id int, data any) (*domain.Response, error) {
	if s.mirror.Register(index, typ, id) && s.gauge != nil {
		s.gauge.WithLabelValues(index, typ).Set(float64(s.mirror.Count(index, typ)))
	}

	resp, err := s.transport.Put(ctx, elastic.DocumentPath(index, typ, id), data)
	if err != nil {
		return nil, fmt.Errorf("put document: %w", err)
	}

	logpkg.FromContext(ctx).Debug("document stored",
		zap.String("index", index),
		zap.String("type", typ),
		zap.Int("id", id),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

// Get fetches index/type/id. Fails with domain.ErrInvalidState if the mirror has never seen it.
func (s *Service) Get(ctx context.Context, index, typ string, id int) (*domain.Response, error) {
	if !s.mirror.Contains(index, typ, id) {
		return nil, &domain.UnknownDocumentError{Index: index, Type: typ, ID: id}
	}

	resp, err := s.transport.Get(ctx, elastic.DocumentPath(index, typ, id))
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return resp, nil
}

// SimpleSearch runs a query-string search over index/type.
// Fails with domain.ErrInvalidState unless the pair has at least one known id.
func (s *Service) SimpleSearch(ctx context.Context, index, typ, query string) (*domain.Response, error) {
	if !s.mirror.HasType(index, typ) {
		return nil, &domain.UnknownTypeError{Index: index, Type: typ}
	}

	resp, err := s.transport.Search(ctx, elastic.SearchPath(index, typ, query))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return resp, nil
}

// PutRecords stores records under sequential ids starting after the largest known id
// (1 for an unknown pair). Returns the ids written. A transport failure stops the
// batch and returns the ids issued so far together with the error; replies with a
// non-2xx status are logged and do not stop it. Nothing is rolled back.
func (s *Service) PutRecords(ctx context.Context, index, typ string, records []domain.Record) ([]int, error) {
	if len(records) == 0 {
		return []int{}, nil
	}
	base := s.mirror.Reserve(index, typ, len(records))
	defer s.mirror.Release(index, typ, base)

	log := logpkg.FromContext(ctx)
	ids := make([]int, 0, len(records))
	for i, rec := range records {
		id := base + i
		resp, err := s.Put(ctx, index, typ, id, rec)
		if err != nil {
			return ids, fmt.Errorf("record %d of %d: %w", i+1, len(records), err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			log.Warn("record rejected by search service",
				zap.String("index", index),
				zap.String("type", typ),
				zap.Int("id", id),
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", resp.Body),
			)
		}
		ids = append(ids, id)
	}

	log.Debug("records stored",
		zap.String("index", index),
		zap.String("type", typ),
		zap.Int("base", base),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}
