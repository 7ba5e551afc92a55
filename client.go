package esmirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/esmirror/internal/domain"
	"github.com/kailas-cloud/esmirror/internal/mirror"
	"github.com/kailas-cloud/esmirror/internal/transport/elastic"
	documentuc "github.com/kailas-cloud/esmirror/internal/usecase/document"
	healthuc "github.com/kailas-cloud/esmirror/internal/usecase/health"
	loaderuc "github.com/kailas-cloud/esmirror/internal/usecase/loader"
)

type (
	// Record is one JSON object stored as a document.
	Record = domain.Record
	// Response is the raw reply of the search service.
	Response = domain.Response
	// LoadStats counts what a bulk load wrote.
	LoadStats = domain.LoadStats
)

// Internal interfaces for substitution in tests.
type documentUseCase interface {
	Put(ctx context.Context, index, typ string, id int, data any) (*domain.Response, error)
	Get(ctx context.Context, index, typ string, id int) (*domain.Response, error)
	SimpleSearch(ctx context.Context, index, typ, query string) (*domain.Response, error)
	PutRecords(ctx context.Context, index, typ string, records []domain.Record) ([]int, error)
}

type loaderUseCase interface {
	Load(ctx context.Context, path string) (domain.LoadStats, error)
}

type mirrorView interface {
	IDs(index, typ string) []int
	Snapshot() map[string]map[string][]int
}

type searchTransport interface {
	Ping(ctx context.Context) error
	Close()
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the esmirror SDK entry point. It is safe for concurrent use.
type Client struct {
	transport searchTransport
	mirror    mirrorView
	docSvc    documentUseCase
	loadSvc   loaderUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. The mirror starts empty.
// The provided context is used for the optional readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	transport, err := elastic.NewClient(elastic.Config{
		URL:        cfg.url,
		Username:   cfg.username,
		Password:   cfg.password,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("esmirror: create transport: %w", err)
	}

	if cfg.readinessTimeout > 0 {
		if err := transport.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			transport.Close()
			return nil, fmt.Errorf("esmirror: search service not ready: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		transport.Close()
		return nil, err
	}

	m := mirror.New()
	docSvc := documentuc.New(m, transport).WithMirrorGauge(obs.mirrorGauge())
	loadSvc := loaderuc.New(docSvc).WithBaseDir(cfg.baseDir)

	return &Client{
		transport: transport,
		mirror:    m,
		docSvc:    docSvc,
		loadSvc:   loadSvc,
		healthSvc: healthuc.New(transport, nil),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.transport != nil {
		c.transport.Close()
	}
}

// Ping checks search service connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, opPing, start, err) }()

	if err = c.transport.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Put stores data, JSON-encoded, as index/type/id and records the id in the mirror.
// The id is recorded even when the write fails. Replies of any status are
// returned as-is; err is set only when the request could not be completed.
func (c *Client) Put(ctx context.Context, index, typ string, id int, data any) (resp *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, opPut, start, err, docTarget(index, typ, id)...) }()

	return c.docSvc.Put(ctx, index, typ, id, data)
}

// Get fetches index/type/id. It fails with ErrInvalidState, without a request,
// unless this client has written that document.
func (c *Client) Get(ctx context.Context, index, typ string, id int) (resp *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, opGet, start, err, docTarget(index, typ, id)...) }()

	return c.docSvc.Get(ctx, index, typ, id)
}

// SimpleSearch runs a query-string search over index/type. It fails with
// ErrInvalidState, without a request, unless this client has written at least one
// document of that type. Query syntax is sent as written; only characters that
// are illegal in a URI, such as spaces, are percent-encoded.
func (c *Client) SimpleSearch(ctx context.Context, index, typ, query string) (resp *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, opSimpleSearch, start, err, target(index, typ)...) }()

	return c.docSvc.SimpleSearch(ctx, index, typ, query)
}

// PutRecords writes records under consecutive ids starting after the largest id
// known for index/type (1 for a new pair). A transport failure stops the batch and
// the ids written before it are returned with the error.
func (c *Client) PutRecords(ctx context.Context, index, typ string, records []Record) (ids []int, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, opPutRecords, start, err, append(target(index, typ), slog.Int("written", len(ids)))...)
	}()

	return c.docSvc.PutRecords(ctx, index, typ, records)
}

// Load bulk-loads a JSON file shaped {index: {type: [record, ...]}}.
// A missing file fails with *InvalidFileError before any request.
func (c *Client) Load(ctx context.Context, path string) (stats LoadStats, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, opLoad, start, err, slog.String("path", path), slog.Int("records", stats.Records))
	}()

	return c.loadSvc.Load(ctx, path)
}

// IDs returns the ids written for index/type, in write order.
func (c *Client) IDs(index, typ string) []int {
	return c.mirror.IDs(index, typ)
}

// Mirror returns a copy of the whole mirror: index -> type -> ids.
func (c *Client) Mirror() map[string]map[string][]int {
	return c.mirror.Snapshot()
}

// HealthStatus is the aggregated state of the search service and the mirror.
type HealthStatus struct {
	Status    string            // "ok" or "error"
	Checks    map[string]string // "search" -> "ok"/"error"
	Indices   int               // indices with at least one written document
	Documents int               // ids tracked by the mirror
}

// Health pings the search service and summarizes the mirror.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	snap := c.mirror.Snapshot()
	docs := 0
	for _, types := range snap {
		for _, ids := range types {
			docs += len(ids)
		}
	}
	return HealthStatus{
		Status:    string(report.Status),
		Checks:    checks,
		Indices:   len(snap),
		Documents: docs,
	}
}

func docTarget(index, typ string, id int) []slog.Attr {
	return append(target(index, typ), slog.Int("id", id))
}
