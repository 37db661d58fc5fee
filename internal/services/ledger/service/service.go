// Package service is the ledger's submission and query facade. Every
// transport (gRPC, HTTP, MCP, CLI) goes through it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/platform/grpc/pagination"
	"github.com/louisbranch/objectledger/internal/platform/id"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/voting"
)

// TxReceipt reports a committed submission.
type TxReceipt = engine.Receipt

// Backend is a ledger store: committed objects, commit protocol, event log
// and transaction journal.
type Backend interface {
	engine.Store
	eventlog.Source
	ListTransactions(ctx context.Context, afterSeq uint64, limit int) ([]engine.TxRecord, error)
	VerifyEventIntegrity(ctx context.Context, verifier eventlog.Verifier) error
	Close() error
}

// Service submits transactions and answers queries.
type Service struct {
	backend   Backend
	ops       *operation.Registry
	events    *event.Registry
	executor  engine.Executor
	queries   voting.Queries
	clock     func() time.Time
	newTxID   func() (string, error)
	halt      func(error)
	tracer    trace.Tracer
	observers []engine.Observer
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used to stamp transactions.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithTxIDs replaces the transaction id generator.
func WithTxIDs(next func() (string, error)) Option {
	return func(s *Service) {
		s.newTxID = next
	}
}

// WithHalt replaces the handler for fatal storage errors. The default logs
// and exits the process.
func WithHalt(halt func(error)) Option {
	return func(s *Service) {
		s.halt = halt
	}
}

// WithTracer sets the executor tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithObserver is notified after every commit.
func WithObserver(observer engine.Observer) Option {
	return func(s *Service) {
		s.observers = append(s.observers, observer)
	}
}

// Registries builds the operation and event registries of the ledger.
func Registries() (*operation.Registry, *event.Registry, error) {
	ops := operation.NewRegistry()
	if err := voting.Register(ops); err != nil {
		return nil, nil, fmt.Errorf("register operations: %w", err)
	}
	events := event.NewRegistry()
	if err := voting.RegisterEvents(events); err != nil {
		return nil, nil, fmt.Errorf("register events: %w", err)
	}
	return ops, events, nil
}

// New creates a service over backend.
func New(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	ops, events, err := Registries()
	if err != nil {
		return nil, err
	}
	s := &Service{
		backend: backend,
		ops:     ops,
		events:  events,
		queries: voting.Queries{Objects: backend},
		clock:   time.Now,
		newTxID: id.NewID,
		halt: func(err error) {
			log.WithError(err).Fatal("ledger storage exhausted, halting")
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.executor = engine.Executor{
		Store:     backend,
		Events:    events,
		Tracer:    s.tracer,
		Observers: s.observers,
	}
	return s, nil
}

// Backend returns the underlying store.
func (s *Service) Backend() Backend {
	return s.backend
}

// Operations lists the submittable operations.
func (s *Service) Operations() []operation.Definition {
	return s.ops.ListDefinitions()
}

// Submit runs one operation as sender. The transaction either commits fully
// or leaves state and the event log untouched. VERSION_CONFLICT is returned
// to the caller, who retries with a fresh submission.
func (s *Service) Submit(ctx context.Context, sender string, kind operation.Kind, args json.RawMessage) (TxReceipt, error) {
	addr, err := object.ParseAddress(sender)
	if err != nil {
		return TxReceipt{}, engine.InvalidArgument("sender", err.Error())
	}
	fn, err := s.ops.Bind(kind, args)
	if err != nil {
		return TxReceipt{}, err
	}
	txID, err := s.newTxID()
	if err != nil {
		return TxReceipt{}, fmt.Errorf("allocate tx id: %w", err)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	receipt, err := s.executor.Execute(ctx, engine.Request{
		TxID:      txID,
		Sender:    addr,
		Kind:      string(kind),
		Args:      args,
		Timestamp: s.clock().UTC().Truncate(time.Millisecond),
	}, fn)
	if apperrors.IsCode(err, apperrors.CodeStorageExhausted) {
		s.halt(err)
	}
	return receipt, err
}

// ProposalInfo returns a committed proposal.
func (s *Service) ProposalInfo(ctx context.Context, proposalID string) (voting.ProposalInfo, error) {
	return s.queries.ProposalInfo(ctx, object.ID(proposalID))
}

// RegistryInfo returns the committed registry.
func (s *Service) RegistryInfo(ctx context.Context) (voting.RegistryInfo, error) {
	return s.queries.RegistryInfo(ctx)
}

// HasVoted reports whether address voted on the proposal.
func (s *Service) HasVoted(ctx context.Context, proposalID, address string) (bool, error) {
	addr, err := object.ParseAddress(address)
	if err != nil {
		return false, engine.InvalidArgument("address", err.Error())
	}
	return s.queries.HasVoted(ctx, object.ID(proposalID), addr)
}

// EventPage is one page of the event log.
type EventPage struct {
	Events []event.Event `json:"events"`
	// NextAfterSeq continues the listing; zero when the page was short.
	NextAfterSeq uint64 `json:"next_after_seq,omitempty"`
}

// ListEvents pages through events with seq > afterSeq matching an AIP-160
// filter.
func (s *Service) ListEvents(ctx context.Context, afterSeq uint64, pageSize int, filter string) (EventPage, error) {
	parsed, err := eventlog.ParseFilter(filter)
	if err != nil {
		return EventPage{}, err
	}
	limit := pagination.ClampPageSize(pageSize, pagination.EventPageSize)
	events, err := s.backend.ListEvents(ctx, afterSeq, limit, parsed)
	if err != nil {
		return EventPage{}, err
	}
	page := EventPage{Events: events}
	if len(events) == limit {
		page.NextAfterSeq = events[len(events)-1].Seq
	}
	return page, nil
}

// ListObjects returns committed objects matching filter.
func (s *Service) ListObjects(ctx context.Context, filter objectstore.Filter) ([]object.Object, error) {
	if filter.Owner != "" {
		owner, err := object.ParseAddress(string(filter.Owner))
		if err != nil {
			return nil, engine.InvalidArgument("owner", err.Error())
		}
		filter.Owner = owner
	}
	return s.backend.List(ctx, filter)
}

// GetObject returns one committed object.
func (s *Service) GetObject(ctx context.Context, objectID string) (object.Object, error) {
	id, err := object.ParseID(objectID)
	if err != nil {
		return object.Object{}, objectstore.NotFound(object.ID(objectID))
	}
	return s.backend.Get(ctx, id)
}

// CheckInvariants audits committed voting state.
func (s *Service) CheckInvariants(ctx context.Context) error {
	return voting.CheckInvariants(ctx, s.backend)
}
