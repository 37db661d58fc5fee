// Package app assembles a runnable ledger process from configuration.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/objectledger/internal/services/ledger/storage/integrity"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config controls storage, transports and the event relay.
type Config struct {
	GRPCAddr string `env:"LEDGER_GRPC_ADDR" envDefault:"localhost:8090" yaml:"grpc_addr"`
	HTTPAddr string `env:"LEDGER_HTTP_ADDR" envDefault:"localhost:8091" yaml:"http_addr"`

	Storage string `env:"LEDGER_STORAGE" envDefault:"sqlite" yaml:"storage"`
	DBPath  string `env:"LEDGER_DB_PATH" envDefault:"data/ledger.db" yaml:"db_path"`
	// EventCapacity bounds the in-memory event log; zero is unbounded.
	EventCapacity int `env:"LEDGER_EVENT_CAPACITY" yaml:"event_capacity"`

	Integrity integrity.Config `yaml:"integrity"`

	JWTSecret string `env:"LEDGER_AUTH_JWT_SECRET" yaml:"jwt_secret"`
	JWTIssuer string `env:"LEDGER_AUTH_JWT_ISSUER" envDefault:"objectledger" yaml:"jwt_issuer"`

	CORSOrigins []string `env:"LEDGER_HTTP_CORS_ORIGINS" envSeparator:"," yaml:"cors_origins"`

	RedisURL      string        `env:"LEDGER_REDIS_URL" yaml:"redis_url"`
	RedisStream   string        `env:"LEDGER_REDIS_STREAM" envDefault:"ledger.events" yaml:"redis_stream"`
	RedisMaxLen   int64         `env:"LEDGER_REDIS_MAXLEN" yaml:"redis_maxlen"`
	RelayInterval time.Duration `env:"LEDGER_RELAY_INTERVAL" envDefault:"1s" yaml:"relay_interval"`
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case StorageSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("LEDGER_DB_PATH is required for sqlite storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.EventCapacity < 0 {
		return fmt.Errorf("event capacity must not be negative")
	}
	return nil
}

// RelayEnabled reports whether events should be forwarded to Redis.
func (c Config) RelayEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
