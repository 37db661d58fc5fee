// Package ledger wires the ledger CLI: configuration loading and one cobra
// subcommand per process mode.
package ledger

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
	"github.com/louisbranch/objectledger/internal/services/ledger/app"
)

// Config holds every setting a ledger command may read.
type Config struct {
	app.Config `yaml:",inline"`

	LogLevel  string `env:"LEDGER_LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	LogFormat string `env:"LEDGER_LOG_FORMAT" envDefault:"text" yaml:"log_format"`
	// DialTimeout bounds client commands waiting for a healthy server.
	DialTimeout time.Duration `env:"LEDGER_DIAL_TIMEOUT" envDefault:"2s" yaml:"dial_timeout"`
}

// flagValues are the persistent flags; each overrides the loaded config
// only when set on the command line.
type flagValues struct {
	configFile string
	logLevel   string
	logFormat  string
	grpcAddr   string
	httpAddr   string
	storage    string
	dbPath     string
}

func (f *flagValues) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configFile, "config", "", "YAML config file overlaid on environment defaults")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&f.logFormat, "log-format", "", "log format (text, json)")
	flags.StringVar(&f.grpcAddr, "grpc-addr", "", "ledger gRPC address")
	flags.StringVar(&f.httpAddr, "http-addr", "", "ledger HTTP address; empty string disables HTTP for serve")
	flags.StringVar(&f.storage, "storage", "", "storage backend (sqlite, memory)")
	flags.StringVar(&f.dbPath, "db-path", "", "SQLite database path")
}

// LoadConfig resolves env defaults, then the YAML file, then flags.
func LoadConfig(cmd *cobra.Command, f *flagValues) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigWithFile(&cfg, f.configFile); err != nil {
		return Config{}, err
	}
	override := func(name string, target *string, value string) {
		if flag := cmd.Flag(name); flag != nil && flag.Changed {
			*target = value
		}
	}
	override("log-level", &cfg.LogLevel, f.logLevel)
	override("log-format", &cfg.LogFormat, f.logFormat)
	override("grpc-addr", &cfg.GRPCAddr, f.grpcAddr)
	override("http-addr", &cfg.HTTPAddr, f.httpAddr)
	override("storage", &cfg.Storage, f.storage)
	override("db-path", &cfg.DBPath, f.dbPath)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
