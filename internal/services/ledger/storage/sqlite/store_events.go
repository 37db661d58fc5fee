package sqlite

import (
	"context"
	"fmt"
	"iter"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

const eventColumns = `seq, tx_id, tx_seq, event_index, kind, entity_id, sender, timestamp_ms,
	payload_json, event_hash, prev_hash, chain_hash, signature, signature_key_id`

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt               event.Event
		seq, txSeq, index int64
		kind, payload     string
		timestampMillis   int64
	)
	if err := row.Scan(&seq, &evt.TxID, &txSeq, &index, &kind, &evt.EntityID, &evt.Sender, &timestampMillis,
		&payload, &evt.Hash, &evt.PrevHash, &evt.ChainHash, &evt.Signature, &evt.SignatureKeyID); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.TxSeq = uint64(txSeq)
	evt.Index = uint32(index)
	evt.Kind = event.Kind(kind)
	evt.Timestamp = fromMillis(timestampMillis)
	evt.Payload = []byte(payload)
	return evt, nil
}

// ListEvents returns up to limit events with seq > afterSeq matching filter.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int, filter eventlog.Filter) ([]event.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := "SELECT " + eventColumns + " FROM events WHERE seq > ?"
	params := []any{int64(afterSeq)}
	if cond := filter.SQL(); cond.Clause != "" {
		query += " AND " + cond.Clause
		params = append(params, cond.Params...)
	}
	query += " ORDER BY seq"
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// LatestSeq returns the last event sequence, or 0 for an empty log.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var seq int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest event seq: %w", err)
	}
	return uint64(seq), nil
}

// Events lazily scans events matching filter.
func (s *Store) Events(ctx context.Context, filter eventlog.Filter) iter.Seq2[event.Event, error] {
	return eventlog.Scan(ctx, s, filter, eventlog.DefaultScanPage)
}

// VerifyEventIntegrity walks the whole chain in pages, checking sequence
// continuity, hashes and signatures when verifier is set.
func (s *Store) VerifyEventIntegrity(ctx context.Context, verifier eventlog.Verifier) error {
	if err := s.ready(); err != nil {
		return err
	}
	var (
		lastSeq   uint64
		prevChain string
	)
	for {
		page, err := s.ListEvents(ctx, lastSeq, eventlog.DefaultScanPage, eventlog.Filter{})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for i, evt := range page {
			if evt.Seq != lastSeq+uint64(i)+1 {
				return fmt.Errorf("event sequence gap expected=%d got=%d", lastSeq+uint64(i)+1, evt.Seq)
			}
		}
		prevChain, err = eventlog.VerifyChain(verifier, prevChain, page)
		if err != nil {
			return err
		}
		lastSeq = page[len(page)-1].Seq
	}
}

// ListTransactions pages through the journal with seq > afterSeq.
func (s *Store) ListTransactions(ctx context.Context, afterSeq uint64, limit int) ([]engine.TxRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := `SELECT tx_seq, tx_id, sender, kind, args_json, timestamp_ms, result_json
		FROM transactions WHERE tx_seq > ? ORDER BY tx_seq`
	params := []any{int64(afterSeq)}
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []engine.TxRecord
	for rows.Next() {
		var (
			rec           engine.TxRecord
			seq, tsMillis int64
			sender        string
			args, result  string
		)
		if err := rows.Scan(&seq, &rec.TxID, &sender, &rec.Kind, &args, &tsMillis, &result); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Sender = object.Address(sender)
		rec.Timestamp = fromMillis(tsMillis)
		if args != "" {
			rec.Args = []byte(args)
		}
		if result != "" {
			rec.Result = []byte(result)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
