package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

const tracerName = "github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"

// Executor runs transaction functions and commits their buffered changes.
type Executor struct {
	Store     Store
	Events    *event.Registry
	Tracer    trace.Tracer
	Observers []Observer
}

// Execute runs fn in a fresh transaction view and commits on success. When fn
// fails, or the commit detects a conflict, nothing is mutated and no event is
// appended.
func (e Executor) Execute(ctx context.Context, req Request, fn TxnFunc) (Receipt, error) {
	if e.Store == nil {
		return Receipt{}, ErrStoreRequired
	}
	if e.Events == nil {
		return Receipt{}, ErrEventRegistryRequired
	}
	if fn == nil {
		return Receipt{}, ErrTxnFuncRequired
	}
	req.TxID = strings.TrimSpace(req.TxID)
	if req.TxID == "" {
		return Receipt{}, ErrTxIDRequired
	}
	if req.Timestamp.IsZero() {
		return Receipt{}, ErrTimestampRequired
	}
	req.Timestamp = req.Timestamp.UTC()

	tracer := e.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "ledger.execute", trace.WithAttributes(
		attribute.String("ledger.tx_id", req.TxID),
		attribute.String("ledger.kind", req.Kind),
		attribute.String("ledger.sender", string(req.Sender)),
	))
	defer span.End()

	logger := log.WithFields(log.Fields{
		"tx_id":  req.TxID,
		"kind":   req.Kind,
		"sender": req.Sender,
	})

	receipt, err := e.execute(ctx, req, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(err).Debug("transaction aborted")
		return Receipt{}, err
	}
	span.SetAttributes(attribute.Int64("ledger.tx_seq", int64(receipt.TxSeq)))
	logger.WithFields(log.Fields{
		"tx_seq": receipt.TxSeq,
		"events": len(receipt.Events),
	}).Debug("transaction committed")

	for _, observe := range e.Observers {
		if observe != nil {
			observe(ctx, receipt)
		}
	}
	return receipt, nil
}

func (e Executor) execute(ctx context.Context, req Request, fn TxnFunc) (Receipt, error) {
	txn := newTxn(ctx, e.Store, req)
	result, err := fn(txn)
	if err != nil {
		return Receipt{}, err
	}

	changes := txn.changes()
	for i, evt := range changes.Events {
		validated, err := e.Events.ValidateForAppend(evt)
		if err != nil {
			return Receipt{}, fmt.Errorf("event %s: %w", evt.Kind, err)
		}
		changes.Events[i] = validated
	}

	var resultJSON json.RawMessage
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return Receipt{}, fmt.Errorf("encode result: %w", err)
		}
		resultJSON = encoded
	}
	changes.Tx = TxRecord{
		TxID:      req.TxID,
		Sender:    req.Sender,
		Kind:      req.Kind,
		Args:      req.Args,
		Timestamp: req.Timestamp,
		Result:    resultJSON,
	}

	committed, err := e.Store.Commit(ctx, changes)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		TxID:      req.TxID,
		TxSeq:     committed.TxSeq,
		Sender:    req.Sender,
		Kind:      req.Kind,
		Timestamp: req.Timestamp,
		Events:    committed.Events,
		Result:    resultJSON,
	}
	receipt.Created = refs(changes.Created)
	receipt.Mutated = refs(changes.Updated)
	return receipt, nil
}

func refs(objs []object.Object) []object.Ref {
	if len(objs) == 0 {
		return nil
	}
	out := make([]object.Ref, len(objs))
	for i, obj := range objs {
		out[i] = obj.Ref()
	}
	return out
}
