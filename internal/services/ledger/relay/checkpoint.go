package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNameRequired indicates a missing relay name.
var ErrNameRequired = errors.New("relay name is required")

// Checkpoints remembers the last event sequence each relay published.
type Checkpoints interface {
	GetCheckpoint(ctx context.Context, name string) (uint64, error)
	SaveCheckpoint(ctx context.Context, name string, seq uint64) error
}

// MemoryCheckpoints stores checkpoints in memory.
type MemoryCheckpoints struct {
	mu   sync.Mutex
	seqs map[string]uint64
}

// NewMemoryCheckpoints creates an empty in-memory checkpoint store.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{seqs: make(map[string]uint64)}
}

// GetCheckpoint returns the saved sequence for name, or 0.
func (m *MemoryCheckpoints) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrNameRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seqs[name], nil
}

// SaveCheckpoint records seq for name. Checkpoints never move backwards.
func (m *MemoryCheckpoints) SaveCheckpoint(ctx context.Context, name string, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq > m.seqs[name] {
		m.seqs[name] = seq
	}
	return nil
}
