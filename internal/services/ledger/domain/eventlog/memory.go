package eventlog

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
)

// Predicate selects events from a query.
type Predicate func(event.Event) bool

// Memory is an in-memory event log. Appends are all-or-nothing and readers
// never observe a partially appended batch.
type Memory struct {
	mu        sync.RWMutex
	events    []event.Event
	lastChain string
	capacity  int
	signer    Signer
}

// MemoryOption configures a Memory log.
type MemoryOption func(*Memory)

// WithCapacity bounds the number of events the log accepts. Zero means
// unbounded.
func WithCapacity(capacity int) MemoryOption {
	return func(m *Memory) {
		m.capacity = capacity
	}
}

// WithSigner signs every appended chain hash.
func WithSigner(signer Signer) MemoryOption {
	return func(m *Memory) {
		m.signer = signer
	}
}

// NewMemory creates an empty log.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Reserve reports whether n more events fit. Stores call it before applying
// object changes so that a full log never leaves a half-applied commit.
func (m *Memory) Reserve(n int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reserveLocked(n)
}

func (m *Memory) reserveLocked(n int) error {
	if m.capacity > 0 && len(m.events)+n > m.capacity {
		return StorageExhausted(fmt.Sprintf("capacity %d reached", m.capacity), nil)
	}
	return nil
}

// Append assigns sequence numbers, seals and stores evts as one batch.
func (m *Memory) Append(evts ...event.Event) ([]event.Event, error) {
	if len(evts) == 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reserveLocked(len(evts)); err != nil {
		return nil, err
	}
	numbered := make([]event.Event, len(evts))
	base := uint64(len(m.events))
	for i, evt := range evts {
		evt.Seq = base + uint64(i) + 1
		evt.Payload = slices.Clone(evt.Payload)
		numbered[i] = evt
	}
	sealed, lastChain, err := Seal(m.signer, m.lastChain, numbered)
	if err != nil {
		return nil, err
	}
	m.events = append(m.events, sealed...)
	m.lastChain = lastChain
	return cloneEvents(sealed), nil
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// LatestSeq returns the sequence of the last stored event, or 0.
func (m *Memory) LatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.events)), nil
}

// Query returns a lazy sequence of events matching pred in emission order.
// Each iteration starts from the beginning of the log and stops at the length
// the log had when that iteration started, so it is restartable and finite.
func (m *Memory) Query(pred Predicate) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		m.mu.RLock()
		n := len(m.events)
		m.mu.RUnlock()

		for i := 0; i < n; i++ {
			m.mu.RLock()
			evt := m.events[i]
			m.mu.RUnlock()
			if pred != nil && !pred(evt) {
				continue
			}
			evt.Payload = slices.Clone(evt.Payload)
			if !yield(evt) {
				return
			}
		}
	}
}

// ListEvents returns up to limit events with seq > afterSeq matching filter.
func (m *Memory) ListEvents(ctx context.Context, afterSeq uint64, limit int, filter Filter) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []event.Event
	for i := int(min(afterSeq, uint64(len(m.events)))); i < len(m.events); i++ {
		evt := m.events[i]
		if !filter.Match(evt) {
			continue
		}
		evt.Payload = slices.Clone(evt.Payload)
		out = append(out, evt)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// VerifyEventIntegrity re-derives the whole chain.
func (m *Memory) VerifyEventIntegrity(ctx context.Context, verifier Verifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	events := cloneEvents(m.events)
	m.mu.RUnlock()
	_, err := VerifyChain(verifier, "", events)
	return err
}

func cloneEvents(evts []event.Event) []event.Event {
	out := make([]event.Event, len(evts))
	for i, evt := range evts {
		evt.Payload = slices.Clone(evt.Payload)
		out[i] = evt
	}
	return out
}
