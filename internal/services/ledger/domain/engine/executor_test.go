package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

type fakeStore struct {
	mu      sync.Mutex
	table   *objectstore.Table
	log     *eventlog.Memory
	txs     []TxRecord
	commits int
	// beforeCommit runs inside Commit before validation.
	beforeCommit func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{table: objectstore.NewTable(), log: eventlog.NewMemory()}
}

func (s *fakeStore) Get(_ context.Context, id object.ID) (object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.table.Get(id)
	if !ok {
		return object.Object{}, objectstore.NotFound(id)
	}
	return obj, nil
}

func (s *fakeStore) List(_ context.Context, filter objectstore.Filter) ([]object.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.List(filter), nil
}

func (s *fakeStore) Commit(_ context.Context, changes ChangeSet) (CommitResult, error) {
	if s.beforeCommit != nil {
		hook := s.beforeCommit
		s.beforeCommit = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.table.Validate(changes.Reads, changes.Created); err != nil {
		return CommitResult{}, err
	}
	txSeq := uint64(len(s.txs)) + 1
	for i := range changes.Events {
		changes.Events[i].TxSeq = txSeq
	}
	events, err := s.log.Append(changes.Events...)
	if err != nil {
		return CommitResult{}, err
	}
	s.table.Apply(changes.Created, changes.Updated)
	changes.Tx.Seq = txSeq
	s.txs = append(s.txs, changes.Tx)
	s.commits++
	return CommitResult{TxSeq: txSeq, Events: events}, nil
}

type counter struct {
	Count int `json:"count"`
}

const (
	alice = object.Address("0xa11ce")
	bob   = object.Address("0xb0b")
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newExecutor(t *testing.T, store *fakeStore) Executor {
	t.Helper()
	events := event.NewRegistry()
	require.NoError(t, events.Register(event.Definition{Kind: "counter.bumped"}))
	return Executor{Store: store, Events: events}
}

func request(txID string, sender object.Address) Request {
	return Request{TxID: txID, Sender: sender, Kind: "test", Timestamp: testNow}
}

func createCounter(t *testing.T, exec Executor, owner object.Owner) object.ID {
	t.Helper()
	receipt, err := exec.Execute(context.Background(), request("create-"+string(owner.Address)+owner.String(), alice), func(txn *Txn) (any, error) {
		ref, err := txn.Create("counter", owner, counter{})
		return ref.ID, err
	})
	require.NoError(t, err)
	require.Len(t, receipt.Created, 1)
	assert.Equal(t, uint64(0), receipt.Created[0].Version)
	return receipt.Created[0].ID
}

func bump(id object.ID) TxnFunc {
	return func(txn *Txn) (any, error) {
		var c counter
		obj, err := txn.Load(id, "counter", &c)
		if err != nil {
			return nil, err
		}
		c.Count++
		if err := txn.Write(id, obj.Version, c); err != nil {
			return nil, err
		}
		return c.Count, txn.Emit("counter.bumped", id, c)
	}
}

func TestExecuteCommitsWritesAndEvents(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	receipt, err := exec.Execute(context.Background(), request("tx-1", bob), bump(id))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), receipt.TxSeq)
	assert.Equal(t, []object.Ref{{ID: id, Version: 1}}, receipt.Mutated)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, uint64(1), receipt.Events[0].Seq)
	assert.Equal(t, uint64(2), receipt.Events[0].TxSeq)
	assert.Equal(t, string(bob), receipt.Events[0].Sender)
	assert.JSONEq(t, `1`, string(receipt.Result))

	obj, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), obj.Version)
	assert.JSONEq(t, `{"count":1}`, string(obj.Payload))
}

func TestExecuteBumpsVersionOncePerCommit(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	_, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		obj, err := txn.Read(id)
		if err != nil {
			return nil, err
		}
		if err := txn.Write(id, obj.Version, counter{Count: 1}); err != nil {
			return nil, err
		}
		return nil, txn.Write(id, obj.Version, counter{Count: 2})
	})
	require.NoError(t, err)

	obj, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), obj.Version)
	assert.JSONEq(t, `{"count":2}`, string(obj.Payload))
}

func TestExecuteAbortLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	boom := errors.New("boom")
	_, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		if _, err := bump(id)(txn); err != nil {
			return nil, err
		}
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	obj, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), obj.Version)
	assert.Equal(t, 0, store.log.Len())
	assert.Equal(t, 1, store.commits)
}

func TestExecuteDetectsStaleRead(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	store.beforeCommit = func() {
		_, err := exec.Execute(context.Background(), request("tx-racer", bob), bump(id))
		require.NoError(t, err)
	}
	_, err := exec.Execute(context.Background(), request("tx-loser", alice), bump(id))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeVersionConflict))

	_, err = exec.Execute(context.Background(), request("tx-retry", alice), bump(id))
	require.NoError(t, err)

	var c counter
	obj, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, obj.Decode(&c))
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, uint64(2), obj.Version)
	assert.Equal(t, 2, store.log.Len())
}

func TestWriteRejectsWrongExpectedVersion(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	_, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		if _, err := txn.Read(id); err != nil {
			return nil, err
		}
		return nil, txn.Write(id, 7, counter{Count: 9})
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeVersionConflict))
}

func TestExclusiveObjectsRequireOwner(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Exclusive(alice))

	_, err := exec.Execute(context.Background(), request("tx-bob", bob), bump(id))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = exec.Execute(context.Background(), request("tx-bob-borrow", bob), func(txn *Txn) (any, error) {
		_, err := txn.Borrow(id, "counter", nil)
		return nil, err
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = exec.Execute(context.Background(), request("tx-alice", alice), bump(id))
	require.NoError(t, err)
}

func TestTransferOwner(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	capID := createCounter(t, exec, object.Exclusive(alice))
	sharedID := createCounter(t, exec, object.Shared())

	transfer := func(id object.ID, sender object.Address) error {
		_, err := exec.Execute(context.Background(), request("tx-transfer-"+string(sender)+string(id), sender), func(txn *Txn) (any, error) {
			obj, err := txn.Read(id)
			if err != nil {
				return nil, err
			}
			return nil, txn.TransferOwner(id, obj.Version, object.Exclusive(bob))
		})
		return err
	}

	assert.True(t, apperrors.IsCode(transfer(capID, bob), apperrors.CodeUnauthorized))
	assert.True(t, apperrors.IsCode(transfer(sharedID, alice), apperrors.CodeUnauthorized))
	require.NoError(t, transfer(capID, alice))

	obj, err := store.Get(context.Background(), capID)
	require.NoError(t, err)
	assert.True(t, obj.Owner.OwnedBy(bob))
	assert.Equal(t, uint64(1), obj.Version)
}

func TestCreateAtRejectsTakenID(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	reserved := object.ReservedID("test/singleton")

	create := func(txID string) error {
		_, err := exec.Execute(context.Background(), request(txID, alice), func(txn *Txn) (any, error) {
			_, err := txn.CreateAt(reserved, "singleton", object.Shared(), nil)
			return nil, err
		})
		return err
	}
	require.NoError(t, create("tx-1"))
	err := create("tx-2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvariantViolation))
}

func TestCreatedObjectsVisibleWithinTransaction(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)

	receipt, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		ref, err := txn.Create("counter", object.Shared(), counter{})
		if err != nil {
			return nil, err
		}
		var c counter
		if _, err := txn.Load(ref.ID, "counter", &c); err != nil {
			return nil, err
		}
		return nil, txn.Write(ref.ID, ref.Version, counter{Count: c.Count + 5})
	})
	require.NoError(t, err)
	require.Len(t, receipt.Created, 1)
	assert.Empty(t, receipt.Mutated)

	obj, err := store.Get(context.Background(), receipt.Created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), obj.Version)
	assert.JSONEq(t, `{"count":5}`, string(obj.Payload))
}

func TestLoadTypeMismatch(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	id := createCounter(t, exec, object.Shared())

	_, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		_, err := txn.Load(id, "other", nil)
		return nil, err
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTypeMismatch))
}

func TestExecuteRejectsUnknownEventKind(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)

	_, err := exec.Execute(context.Background(), request("tx-1", alice), func(txn *Txn) (any, error) {
		return nil, txn.Emit("unknown.kind", object.ReservedID("x"), json.RawMessage(`{}`))
	})
	require.ErrorIs(t, err, event.ErrKindUnknown)
	assert.Equal(t, 0, store.commits)
}

func TestExecuteValidatesRequest(t *testing.T) {
	exec := newExecutor(t, newFakeStore())
	noop := func(*Txn) (any, error) { return nil, nil }

	_, err := exec.Execute(context.Background(), Request{Timestamp: testNow}, noop)
	require.ErrorIs(t, err, ErrTxIDRequired)
	_, err = exec.Execute(context.Background(), Request{TxID: "x"}, noop)
	require.ErrorIs(t, err, ErrTimestampRequired)
	_, err = exec.Execute(context.Background(), request("x", alice), nil)
	require.ErrorIs(t, err, ErrTxnFuncRequired)
	_, err = Executor{}.Execute(context.Background(), request("x", alice), noop)
	require.ErrorIs(t, err, ErrStoreRequired)
}

func TestObserversSeeReceipts(t *testing.T) {
	store := newFakeStore()
	exec := newExecutor(t, store)
	var seen []uint64
	exec.Observers = append(exec.Observers, func(_ context.Context, r Receipt) {
		seen = append(seen, r.TxSeq)
	})
	createCounter(t, exec, object.Shared())
	assert.Equal(t, []uint64{1}, seen)
}
