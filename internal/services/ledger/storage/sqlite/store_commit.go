package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// Commit validates the read set and writes objects, the journal entry and
// the sealed events in one SQL transaction.
func (s *Store) Commit(ctx context.Context, changes engine.ChangeSet) (engine.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.CommitResult{}, err
	}
	if err := s.ready(); err != nil {
		return engine.CommitResult{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	result, err := s.commit(ctx, changes)
	switch {
	case err == nil:
		return result, nil
	case isFullError(err):
		return engine.CommitResult{}, eventlog.StorageExhausted("sqlite database is full", err)
	case isBusyError(err):
		return engine.CommitResult{}, objectstore.Busy("commit", err)
	}
	return engine.CommitResult{}, err
}

func (s *Store) commit(ctx context.Context, changes engine.ChangeSet) (engine.CommitResult, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return engine.CommitResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for id, observed := range changes.Reads {
		var current int64
		err := tx.QueryRowContext(ctx, "SELECT version FROM objects WHERE id = ?", string(id)).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return engine.CommitResult{}, objectstore.NotFound(id)
		}
		if err != nil {
			return engine.CommitResult{}, fmt.Errorf("read version %s: %w", id, err)
		}
		if uint64(current) != observed {
			return engine.CommitResult{}, objectstore.VersionConflict(id, observed, uint64(current))
		}
	}

	for _, obj := range changes.Created {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO objects ("+objectColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			string(obj.ID), int64(obj.Version), string(obj.Owner.Kind), string(obj.Owner.Address), obj.Type, string(obj.Payload),
		)
		if isConstraintError(err) {
			return engine.CommitResult{}, objectstore.AlreadyExists(obj.ID)
		}
		if err != nil {
			return engine.CommitResult{}, fmt.Errorf("insert object %s: %w", obj.ID, err)
		}
	}

	for _, obj := range changes.Updated {
		res, err := tx.ExecContext(ctx,
			`UPDATE objects SET version = ?, owner_kind = ?, owner_address = ?, payload_json = ?
			 WHERE id = ? AND version = ?`,
			int64(obj.Version), string(obj.Owner.Kind), string(obj.Owner.Address), string(obj.Payload),
			string(obj.ID), int64(obj.Version-1),
		)
		if err != nil {
			return engine.CommitResult{}, fmt.Errorf("update object %s: %w", obj.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return engine.CommitResult{}, fmt.Errorf("update object %s: %w", obj.ID, err)
		}
		if affected != 1 {
			return engine.CommitResult{}, objectstore.VersionConflict(obj.ID, obj.Version-1, obj.Version)
		}
	}

	var txSeq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(tx_seq), 0) + 1 FROM transactions").Scan(&txSeq); err != nil {
		return engine.CommitResult{}, fmt.Errorf("next tx seq: %w", err)
	}
	record := changes.Tx
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (tx_seq, tx_id, sender, kind, args_json, timestamp_ms, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txSeq, record.TxID, string(record.Sender), record.Kind, string(record.Args), toMillis(record.Timestamp), string(record.Result),
	)
	if isConstraintError(err) {
		return engine.CommitResult{}, engine.InvariantViolation(fmt.Sprintf("transaction %s already committed", record.TxID))
	}
	if err != nil {
		return engine.CommitResult{}, fmt.Errorf("insert transaction: %w", err)
	}

	appended, err := s.appendEvents(ctx, tx, uint64(txSeq), changes.Events)
	if err != nil {
		return engine.CommitResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return engine.CommitResult{}, fmt.Errorf("commit: %w", err)
	}
	return engine.CommitResult{TxSeq: uint64(txSeq), Events: appended}, nil
}

func (s *Store) appendEvents(ctx context.Context, tx *sql.Tx, txSeq uint64, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	var (
		lastSeq   int64
		prevChain string
	)
	err := tx.QueryRowContext(ctx, "SELECT seq, chain_hash FROM events ORDER BY seq DESC LIMIT 1").Scan(&lastSeq, &prevChain)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load previous event: %w", err)
	}

	numbered := make([]event.Event, len(events))
	for i, evt := range events {
		evt.Seq = uint64(lastSeq) + uint64(i) + 1
		evt.TxSeq = txSeq
		evt.Timestamp = fromMillis(toMillis(evt.Timestamp))
		numbered[i] = evt
	}
	sealed, _, err := eventlog.Seal(s.signer, prevChain, numbered)
	if err != nil {
		return nil, err
	}

	for _, evt := range sealed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(evt.Seq), evt.TxID, int64(evt.TxSeq), int64(evt.Index), string(evt.Kind), evt.EntityID, evt.Sender,
			toMillis(evt.Timestamp), string(evt.Payload), evt.Hash, evt.PrevHash, evt.ChainHash, evt.Signature, evt.SignatureKeyID,
		); err != nil {
			return nil, fmt.Errorf("append event seq=%d: %w", evt.Seq, err)
		}
	}
	return sealed, nil
}
