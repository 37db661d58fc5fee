package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

var now = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

func createSet(id object.ID, events int) engine.ChangeSet {
	cs := engine.ChangeSet{
		Tx:      engine.TxRecord{TxID: "tx-" + string(id), Sender: "0xa", Kind: "test", Timestamp: now},
		Reads:   map[object.ID]uint64{},
		Created: []object.Object{{ID: id, Owner: object.Shared(), Type: "thing", Payload: json.RawMessage(`{}`)}},
	}
	for i := 0; i < events; i++ {
		cs.Events = append(cs.Events, event.Event{
			TxID: cs.Tx.TxID, Index: uint32(i), Kind: "thing.created", EntityID: string(id),
			Sender: "0xa", Timestamp: now, Payload: json.RawMessage(`{}`),
		})
	}
	return cs
}

func TestCommitAppliesObjectsEventsAndJournal(t *testing.T) {
	ctx := context.Background()
	store := New()
	id := object.DeriveID("a", 0)

	result, err := store.Commit(ctx, createSet(id, 2))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.TxSeq)
	require.Len(t, result.Events, 2)
	assert.Equal(t, uint64(1), result.Events[0].TxSeq)

	obj, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "thing", obj.Type)

	txs, err := store.ListTransactions(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, uint64(1), txs[0].Seq)

	seq, err := store.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
	require.NoError(t, store.VerifyEventIntegrity(ctx, nil))
}

func TestCommitRejectsStaleReadWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	store := New()
	id := object.DeriveID("a", 0)
	_, err := store.Commit(ctx, createSet(id, 0))
	require.NoError(t, err)

	update := engine.ChangeSet{
		Tx:      engine.TxRecord{TxID: "tx-update", Sender: "0xa", Kind: "test", Timestamp: now},
		Reads:   map[object.ID]uint64{id: 0},
		Updated: []object.Object{{ID: id, Version: 1, Owner: object.Shared(), Type: "thing", Payload: json.RawMessage(`{"n":1}`)}},
	}
	_, err = store.Commit(ctx, update)
	require.NoError(t, err)

	_, err = store.Commit(ctx, update)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeVersionConflict))

	txs, err := store.ListTransactions(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestCommitStorageExhaustedLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := New(WithEventCapacity(1))
	id := object.DeriveID("a", 0)

	_, err := store.Commit(ctx, createSet(id, 2))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageExhausted))

	_, err = store.Get(ctx, id)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	txs, err := store.ListTransactions(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestListTransactionsPaging(t *testing.T) {
	ctx := context.Background()
	store := New()
	for i := uint32(0); i < 5; i++ {
		_, err := store.Commit(ctx, createSet(object.DeriveID("page", i), 0))
		require.NoError(t, err)
	}
	page, err := store.ListTransactions(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(4), page[0].Seq)

	page, err = store.ListTransactions(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestCommitRejectsDuplicateTxID(t *testing.T) {
	ctx := context.Background()
	store := New()
	first := createSet(object.DeriveID("a", 0), 1)
	_, err := store.Commit(ctx, first)
	require.NoError(t, err)

	again := createSet(object.DeriveID("b", 0), 1)
	again.Tx.TxID = first.Tx.TxID
	_, err = store.Commit(ctx, again)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvariantViolation))

	_, err = store.Get(ctx, object.DeriveID("b", 0))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	seq, err := store.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}
