package esmirror

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	url        string
	username   string
	password   string
	httpClient *http.Client

	baseDir          string
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithURL sets the search service endpoint. Defaults to http://localhost:9200.
func WithURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.url = url
	})
}

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithHTTPClient sets the HTTP client used for search service calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithBaseDir sets the directory relative Load paths resolve against.
// Defaults to the directory of the running executable.
func WithBaseDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseDir = dir
	})
}

// WithReadinessTimeout makes New wait up to d for the search service to answer a ping.
// Zero (default) skips the check.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics on the given registerer: calls by
// operation and outcome, call durations, and mirror document counts.
// Pass nil to disable (default). Clients sharing a registerer share these
// series, so the mirror gauge reports whichever client wrote last.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
