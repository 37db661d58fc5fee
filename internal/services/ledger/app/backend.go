package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/integrity"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/memory"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/sqlite"
)

// Keyring returns the configured event keyring, or nil when signing is off.
func (c Config) Keyring() (*integrity.Keyring, error) {
	if !c.Integrity.Enabled() {
		return nil, nil
	}
	keyring, err := c.Integrity.Keyring()
	if err != nil {
		return nil, fmt.Errorf("load event keyring: %w", err)
	}
	return keyring, nil
}

// OpenBackend opens the configured store.
func OpenBackend(ctx context.Context, cfg Config) (service.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keyring, err := cfg.Keyring()
	if err != nil {
		return nil, err
	}
	var signer eventlog.Signer
	if keyring != nil {
		signer = keyring
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case StorageMemory:
		opts := []memory.Option{memory.WithEventCapacity(cfg.EventCapacity)}
		if signer != nil {
			opts = append(opts, memory.WithSigner(signer))
		}
		log.WithField("storage", StorageMemory).Info("opened ledger store")
		return memory.New(opts...), nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		var opts []sqlite.Option
		if signer != nil {
			opts = append(opts, sqlite.WithSigner(signer))
		}
		store, err := sqlite.Open(ctx, cfg.DBPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open ledger sqlite store: %w", err)
		}
		log.WithFields(log.Fields{"storage": StorageSQLite, "path": cfg.DBPath}).Info("opened ledger store")
		return store, nil
	}
}
