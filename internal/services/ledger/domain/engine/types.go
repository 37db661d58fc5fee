package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// Request describes one transaction submission.
type Request struct {
	TxID      string
	Sender    object.Address
	Kind      string
	Args      json.RawMessage
	Timestamp time.Time
}

// TxRecord is the journal entry for a committed transaction. Replaying the
// journal in TxSeq order against an empty store reproduces the ledger.
type TxRecord struct {
	Seq       uint64          `json:"seq"`
	TxID      string          `json:"tx_id"`
	Sender    object.Address  `json:"sender"`
	Kind      string          `json:"kind"`
	Args      json.RawMessage `json:"args"`
	Timestamp time.Time       `json:"timestamp"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// ChangeSet is everything a transaction wants to commit.
type ChangeSet struct {
	Tx TxRecord
	// Reads maps every object the transaction observed to the version it saw.
	Reads   map[object.ID]uint64
	Created []object.Object
	// Updated objects carry their post-commit version.
	Updated []object.Object
	// Events are validated but not yet numbered.
	Events []event.Event
}

// CommitResult is what the store assigned at commit.
type CommitResult struct {
	TxSeq  uint64
	Events []event.Event
}

// Store is the committed object state plus its commit protocol.
type Store interface {
	objectstore.Reader
	// Commit validates the read set, then applies objects, events and the
	// journal entry atomically. A stale read yields VERSION_CONFLICT.
	Commit(ctx context.Context, changes ChangeSet) (CommitResult, error)
}

// Receipt reports a committed transaction.
type Receipt struct {
	TxID      string          `json:"tx_id"`
	TxSeq     uint64          `json:"tx_seq"`
	Sender    object.Address  `json:"sender"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Created   []object.Ref    `json:"created"`
	Mutated   []object.Ref    `json:"mutated"`
	Events    []event.Event   `json:"events"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// TxnFunc is transaction logic. It returns a JSON-encodable result.
type TxnFunc func(txn *Txn) (any, error)

// Observer is notified after every commit.
type Observer func(ctx context.Context, receipt Receipt)
