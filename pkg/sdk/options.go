package datahub

import (
	"log/slog"
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
	driver   string // "redis" or "memory"
	addrs    []string
	password string

	keyPrefix      string
	downloadWindow time.Duration
	viewWindow     time.Duration
	maxAttempts    int
	vectorDim      int

	embedder Embedder
	labels   LabelResolver

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory configures the client to run on the in-memory store.
// Useful for tests and local experiments; nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithKeyPrefix sets the storage key namespace. Default: "datahub:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDedupWindows sets the counter dedup windows.
// Defaults: 24h for downloads, 1h for views.
func WithDedupWindows(download, view time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.downloadWindow = download
		c.viewWindow = view
	})
}

// WithMaxAttempts sets the task retry ceiling before dead-lettering.
// Default: 8.
func WithMaxAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = n
	})
}

// WithEmbedder sets the description embedding provider and the vector
// dimension of the search index. Optional.
func WithEmbedder(e Embedder, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.vectorDim = dimensions
	})
}

// WithLabelResolver sets the reference-taxonomy label resolver. Optional.
func WithLabelResolver(r LabelResolver) Option {
	return optionFunc(func(c *clientConfig) {
		c.labels = r
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
