package tokenmeter

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/tokenmeter/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	db config.DatabaseConfig

	keyPrefix  string
	baseURL    string
	httpClient *http.Client

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores usage in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = config.DatabaseConfig{Driver: config.DriverValkey, Addrs: []string{addr}, Password: password}
	})
}

// WithRedis stores usage in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = config.DatabaseConfig{Driver: config.DriverRedis, Addrs: []string{addr}, Password: password}
	})
}

// WithSQLite stores usage in a SQLite database file (or ":memory:").
func WithSQLite(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn}
	})
}

// WithPostgres stores usage in PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = config.DatabaseConfig{Driver: config.DriverPostgres, DSN: dsn}
	})
}

// WithMemory keeps usage in process memory. Counters are lost on exit.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.db = config.DatabaseConfig{Driver: config.DriverMemory}
	})
}

// WithKeyPrefix sets the root of the persisted layout. Default: "openai:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithUpstream sets the provider origin and, optionally, the HTTP client
// used to reach it. A nil client has no timeout.
func WithUpstream(baseURL string, client *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
		c.httpClient = client
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
