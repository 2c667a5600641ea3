// Package app builds the shared runtime pieces both binaries start from.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/encounter-api/internal/config"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/repository/memory"
	"github.com/jwalitptl/encounter-api/internal/repository/postgres"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/messaging"
	memorybroker "github.com/jwalitptl/encounter-api/pkg/messaging/memory"
	"github.com/jwalitptl/encounter-api/pkg/messaging/redis"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
	"github.com/jwalitptl/encounter-api/pkg/security"
)

const (
	MetricsNamespace = "encounter"
	draftKeyInfo     = "encounter-drafts"
)

// NewLogger builds the process logger and installs it as the zerolog global
// so middleware logs share its level and format.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
	log.Logger = l.Zerolog()
	return l
}

// NewMetrics returns a registry with the process collectors and the
// application metrics registered on it.
func NewMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(MetricsNamespace, reg)
}

// Store wraps the configured store with the database handle, if any.
type Store struct {
	repository.Store
	DB *sqlx.DB
}

func OpenStore(cfg *config.Config, m *metrics.Metrics) (*Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.StoreMemory:
		return &Store{Store: memory.NewStore()}, nil
	case config.StorePostgres:
		enc, err := security.NewEncryptorFromSecret(cfg.Store.EncryptionKey, draftKeyInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to build draft encryptor: %w", err)
		}
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Store{Store: postgres.NewStore(db, enc, m), DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenBroker returns the Redis broker when enabled, otherwise an in-process
// one. The in-process broker only reaches subscribers in the same process.
func OpenBroker(cfg *config.Config, l *logger.Logger, m *metrics.Metrics) (messaging.Broker, error) {
	if !cfg.Redis.Enabled {
		return memorybroker.NewBroker(), nil
	}
	b, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), l.With("broker").Zerolog(), m)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return b, nil
}
