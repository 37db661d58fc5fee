// Package replay re-executes the committed transaction journal against an
// empty store and checks that it reproduces the recorded ledger.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/operation"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/memory"
)

const defaultPageSize = 200

var (
	// ErrSourceRequired indicates a missing source ledger.
	ErrSourceRequired = errors.New("source ledger is required")
	// ErrDiverged indicates the replay did not reproduce the source.
	ErrDiverged = errors.New("replay diverged from recorded ledger")
)

// Source is a recorded ledger.
type Source interface {
	objectstore.Reader
	eventlog.Source
	ListTransactions(ctx context.Context, afterSeq uint64, limit int) ([]engine.TxRecord, error)
}

// Options configures a replay.
type Options struct {
	// UntilTxSeq stops after this transaction; zero replays everything. A
	// partial replay only compares transactions, not final state.
	UntilTxSeq uint64
	PageSize   int
}

// Result summarizes a replay.
type Result struct {
	Transactions int
	Events       int
	Objects      int
	LastTxSeq    uint64
	// Store holds the replayed state.
	Store *memory.Store
}

// Verify replays src's journal into a fresh memory store and compares
// transaction results, event hashes and final object state.
func Verify(ctx context.Context, src Source, options Options) (Result, error) {
	if src == nil {
		return Result{}, ErrSourceRequired
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	ops, events, err := service.Registries()
	if err != nil {
		return Result{}, err
	}
	replayed := memory.New()
	executor := engine.Executor{Store: replayed, Events: events}
	result := Result{Store: replayed}

	var afterSeq uint64
	for {
		txs, err := src.ListTransactions(ctx, afterSeq, pageSize)
		if err != nil {
			return result, fmt.Errorf("list transactions after %d: %w", afterSeq, err)
		}
		for _, rec := range txs {
			if options.UntilTxSeq > 0 && rec.Seq > options.UntilTxSeq {
				return result, nil
			}
			if err := replayTx(ctx, executor, ops, rec); err != nil {
				return result, err
			}
			result.Transactions++
			result.LastTxSeq = rec.Seq
			afterSeq = rec.Seq
		}
		if len(txs) < pageSize {
			break
		}
	}
	if options.UntilTxSeq > 0 {
		return result, nil
	}

	n, err := compareEvents(ctx, src, replayed, pageSize)
	result.Events = n
	if err != nil {
		return result, err
	}
	n, err = compareObjects(ctx, src, replayed)
	result.Objects = n
	if err != nil {
		return result, err
	}
	log.WithFields(log.Fields{
		"transactions": result.Transactions,
		"events":       result.Events,
		"objects":      result.Objects,
	}).Info("replay matched recorded ledger")
	return result, nil
}

func replayTx(ctx context.Context, executor engine.Executor, ops *operation.Registry, rec engine.TxRecord) error {
	fn, err := ops.Bind(operation.Kind(rec.Kind), rec.Args)
	if err != nil {
		return fmt.Errorf("tx %d (%s): %w", rec.Seq, rec.TxID, err)
	}
	receipt, err := executor.Execute(ctx, engine.Request{
		TxID:      rec.TxID,
		Sender:    rec.Sender,
		Kind:      rec.Kind,
		Args:      rec.Args,
		Timestamp: rec.Timestamp,
	}, fn)
	if err != nil {
		return fmt.Errorf("%w: tx %d (%s) failed on replay: %v", ErrDiverged, rec.Seq, rec.TxID, err)
	}
	if receipt.TxSeq != rec.Seq {
		return fmt.Errorf("%w: tx %s replayed as seq %d, recorded %d", ErrDiverged, rec.TxID, receipt.TxSeq, rec.Seq)
	}
	if !bytes.Equal(receipt.Result, rec.Result) {
		return fmt.Errorf("%w: tx %d result %s, recorded %s", ErrDiverged, rec.Seq, receipt.Result, rec.Result)
	}
	return nil
}

func compareEvents(ctx context.Context, src Source, replayed *memory.Store, pageSize int) (int, error) {
	var (
		afterSeq uint64
		count    int
	)
	for {
		recorded, err := src.ListEvents(ctx, afterSeq, pageSize, eventlog.Filter{})
		if err != nil {
			return count, fmt.Errorf("list recorded events: %w", err)
		}
		got, err := replayed.ListEvents(ctx, afterSeq, pageSize, eventlog.Filter{})
		if err != nil {
			return count, fmt.Errorf("list replayed events: %w", err)
		}
		if len(recorded) != len(got) {
			return count, fmt.Errorf("%w: %d recorded events after seq %d, replay produced %d",
				ErrDiverged, len(recorded), afterSeq, len(got))
		}
		for i := range recorded {
			if err := sameEvent(recorded[i], got[i]); err != nil {
				return count, err
			}
			count++
		}
		if len(recorded) < pageSize {
			return count, nil
		}
		afterSeq = recorded[len(recorded)-1].Seq
	}
}

func sameEvent(recorded, got event.Event) error {
	if recorded.Seq != got.Seq || recorded.Hash != got.Hash || recorded.ChainHash != got.ChainHash {
		return fmt.Errorf("%w: event seq %d hash %s/%s, replayed seq %d hash %s/%s", ErrDiverged,
			recorded.Seq, recorded.Hash, recorded.ChainHash, got.Seq, got.Hash, got.ChainHash)
	}
	return nil
}

func compareObjects(ctx context.Context, src Source, replayed *memory.Store) (int, error) {
	recorded, err := src.List(ctx, objectstore.Filter{})
	if err != nil {
		return 0, fmt.Errorf("list recorded objects: %w", err)
	}
	got, err := replayed.List(ctx, objectstore.Filter{})
	if err != nil {
		return 0, fmt.Errorf("list replayed objects: %w", err)
	}
	if len(recorded) != len(got) {
		return 0, fmt.Errorf("%w: %d recorded objects, replay produced %d", ErrDiverged, len(recorded), len(got))
	}
	byID := make(map[object.ID]object.Object, len(got))
	for _, obj := range got {
		byID[obj.ID] = obj
	}
	for _, want := range recorded {
		have, ok := byID[want.ID]
		if !ok {
			return 0, fmt.Errorf("%w: object %s missing after replay", ErrDiverged, want.ID)
		}
		if have.Version != want.Version || have.Owner != want.Owner || have.Type != want.Type || !bytes.Equal(have.Payload, want.Payload) {
			return 0, fmt.Errorf("%w: object %s differs (version %d/%d)", ErrDiverged, want.ID, want.Version, have.Version)
		}
	}
	return len(recorded), nil
}
