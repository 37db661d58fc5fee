package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetCheckpoint returns the last relayed event sequence for name, or 0.
func (s *Store) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("checkpoint name is required")
	}
	var seq int64
	err := s.sqlDB.QueryRowContext(ctx, "SELECT last_seq FROM relay_checkpoints WHERE name = ?", name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get checkpoint %s: %w", name, err)
	}
	return uint64(seq), nil
}

// SaveCheckpoint records seq for name. Checkpoints never move backwards.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, seq uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("checkpoint name is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO relay_checkpoints (name, last_seq, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   last_seq = MAX(relay_checkpoints.last_seq, excluded.last_seq),
		   updated_at = excluded.updated_at`,
		name, int64(seq), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", name, err)
	}
	return nil
}
