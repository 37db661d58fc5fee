// Package memory provides an in-process ledger store.
package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// Store keeps objects, events and the transaction journal in memory. Commits
// are serialized by a single lock.
type Store struct {
	mu     sync.RWMutex
	table  *objectstore.Table
	events *eventlog.Memory
	txs    []engine.TxRecord
	txIDs  map[string]struct{}
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	eventCapacity int
	signer        eventlog.Signer
}

// WithEventCapacity bounds the event log; commits beyond it fail with
// STORAGE_EXHAUSTED.
func WithEventCapacity(capacity int) Option {
	return func(o *storeOptions) {
		o.eventCapacity = capacity
	}
}

// WithSigner signs event chain hashes.
func WithSigner(signer eventlog.Signer) Option {
	return func(o *storeOptions) {
		o.signer = signer
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	var o storeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logOpts := []eventlog.MemoryOption{eventlog.WithCapacity(o.eventCapacity)}
	if o.signer != nil {
		logOpts = append(logOpts, eventlog.WithSigner(o.signer))
	}
	return &Store{
		table:  objectstore.NewTable(),
		events: eventlog.NewMemory(logOpts...),
		txIDs:  make(map[string]struct{}),
	}
}

// Get returns a committed object.
func (s *Store) Get(ctx context.Context, id object.ID) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.table.Get(id)
	if !ok {
		return object.Object{}, objectstore.NotFound(id)
	}
	return obj, nil
}

// List returns committed objects in creation order.
func (s *Store) List(ctx context.Context, filter objectstore.Filter) ([]object.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.List(filter), nil
}

// Commit validates the read set and applies the change set atomically.
func (s *Store) Commit(ctx context.Context, changes engine.ChangeSet) (engine.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Validate(changes.Reads, changes.Created); err != nil {
		return engine.CommitResult{}, err
	}
	if _, seen := s.txIDs[changes.Tx.TxID]; seen {
		return engine.CommitResult{}, engine.InvariantViolation(fmt.Sprintf("transaction %s already committed", changes.Tx.TxID))
	}
	if err := s.events.Reserve(len(changes.Events)); err != nil {
		return engine.CommitResult{}, err
	}

	txSeq := uint64(len(s.txs)) + 1
	pending := make([]event.Event, len(changes.Events))
	for i, evt := range changes.Events {
		evt.TxSeq = txSeq
		pending[i] = evt
	}
	appended, err := s.events.Append(pending...)
	if err != nil {
		return engine.CommitResult{}, err
	}
	s.table.Apply(changes.Created, changes.Updated)

	record := changes.Tx
	record.Seq = txSeq
	record.Args = slices.Clone(record.Args)
	record.Result = slices.Clone(record.Result)
	s.txs = append(s.txs, record)
	s.txIDs[record.TxID] = struct{}{}
	return engine.CommitResult{TxSeq: txSeq, Events: appended}, nil
}

// Query returns a lazy, restartable sequence of events matching pred.
func (s *Store) Query(pred eventlog.Predicate) iter.Seq[event.Event] {
	return s.events.Query(pred)
}

// ListEvents pages through events with seq > afterSeq.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int, filter eventlog.Filter) ([]event.Event, error) {
	return s.events.ListEvents(ctx, afterSeq, limit, filter)
}

// LatestSeq returns the last event sequence.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	return s.events.LatestSeq(ctx)
}

// VerifyEventIntegrity re-derives the event chain.
func (s *Store) VerifyEventIntegrity(ctx context.Context, verifier eventlog.Verifier) error {
	return s.events.VerifyEventIntegrity(ctx, verifier)
}

// ListTransactions pages through the journal with seq > afterSeq.
func (s *Store) ListTransactions(ctx context.Context, afterSeq uint64, limit int) ([]engine.TxRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := int(min(afterSeq, uint64(len(s.txs))))
	end := len(s.txs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]engine.TxRecord, 0, end-start)
	for _, tx := range s.txs[start:end] {
		tx.Args = slices.Clone(tx.Args)
		tx.Result = slices.Clone(tx.Result)
		out = append(out, tx)
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
