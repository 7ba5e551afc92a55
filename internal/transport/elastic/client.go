package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	elastic "github.com/olivere/elastic/v7"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/esmirror/internal/domain"
	"github.com/kailas-cloud/esmirror/internal/metrics"
)

// DefaultURL is the search service endpoint used when none is configured.
const DefaultURL = "http://localhost:9200"

// Config holds connection parameters for the search service.
type Config struct {
	URL        string
	Username   string
	Password   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// passThroughStatuses lists every non-2xx status, so replies are handed back
// as responses instead of being turned into errors.
var passThroughStatuses = func() []int {
	codes := make([]int, 0, 500)
	for code := 100; code < 600; code++ {
		if code < 200 || code > 299 {
			codes = append(codes, code)
		}
	}
	return codes
}()

// Client issues raw REST calls against the search service.
// Replies of any status are returned untranslated; only transport failures are
// errors. It never retries a request that reached the network.
type Client struct {
	client *elastic.Client
	url    string
	logger *zap.Logger
}

// NewClient creates a search service client. No request is made until the first call.
func NewClient(cfg Config) (*Client, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
		elastic.SetRetrier(poolRetrier{}),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, elastic.SetHttpClient(cfg.HTTPClient))
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}
	if errLog, err := zap.NewStdLogAt(logger.Named("elastic"), zapcore.ErrorLevel); err == nil {
		opts = append(opts, elastic.SetErrorLog(errLog))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Client{client: client, url: url, logger: logger}, nil
}

// URL returns the base URL of the search service.
func (c *Client) URL() string { return c.url }

// Put sends body as JSON to path with PUT. Every value is JSON-encoded,
// so a Go string is sent as a JSON string.
func (c *Client) Put(ctx context.Context, path string, body any) (*domain.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body for %s: %w", path, err)
	}
	return c.perform(ctx, "put", http.MethodPut, path, json.RawMessage(raw))
}

// Get issues a GET against path.
func (c *Client) Get(ctx context.Context, path string) (*domain.Response, error) {
	return c.perform(ctx, "get", http.MethodGet, path, nil)
}

// Search issues a GET against a _search path.
func (c *Client) Search(ctx context.Context, path string) (*domain.Response, error) {
	return c.perform(ctx, "search", http.MethodGet, path, nil)
}

func (c *Client) perform(ctx context.Context, op, method, path string, body any) (*domain.Response, error) {
	start := time.Now()

	resp, err := c.client.PerformRequest(ctx, elastic.PerformRequestOptions{
		Method:       method,
		Path:         path,
		Body:         body,
		IgnoreErrors: passThroughStatuses,
	})

	metrics.SearchRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(op, metrics.StatusLabel(StatusOf(err))).Inc()
		c.logger.Debug("search request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(op, metrics.StatusLabel(resp.StatusCode)).Inc()

	return &domain.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Ping checks that the search service answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, code, err := c.client.Ping(c.url).Do(ctx)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("ping", metrics.StatusLabel(StatusOf(err))).Inc()
		return fmt.Errorf("ping: %w", err)
	}
	metrics.SearchRequestsTotal.WithLabelValues("ping", metrics.StatusLabel(code)).Inc()
	if code >= http.StatusMultipleChoices {
		return fmt.Errorf("ping: unexpected status %d", code)
	}
	return nil
}

// WaitForReady polls Ping until the service responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search service: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close stops the underlying client.
func (c *Client) Close() {
	c.client.Stop()
}

// poolRetrier never repeats a request that was sent. It only retries once when
// no request went out because the single connection was still marked dead after
// an earlier failure; the pool resurrects it on that first attempt.
type poolRetrier struct{}

func (poolRetrier) Retry(_ context.Context, retry int, req *http.Request, _ *http.Response, err error) (time.Duration, bool, error) {
	if req == nil && retry == 1 && errors.Is(err, elastic.ErrNoClient) {
		return 0, true, nil
	}
	return 0, false, nil
}

// StatusOf extracts the HTTP status from a search service error, 0 if there was no response.
func StatusOf(err error) int {
	var esErr *elastic.Error
	if errors.As(err, &esErr) {
		return esErr.Status
	}
	return 0
}
