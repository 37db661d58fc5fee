package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/encoding"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

// Txn is a transaction's private view of the object store. It is used by a
// single goroutine for the duration of one TxnFunc call.
type Txn struct {
	ctx    context.Context
	reader objectstore.Reader
	req    Request

	reads   map[object.ID]uint64
	view    map[object.ID]object.Object
	created []object.ID
	isNew   map[object.ID]bool
	dirty   []object.ID
	isDirty map[object.ID]bool
	events  []event.Event
	nextID  uint32
}

func newTxn(ctx context.Context, reader objectstore.Reader, req Request) *Txn {
	return &Txn{
		ctx:     ctx,
		reader:  reader,
		req:     req,
		reads:   make(map[object.ID]uint64),
		view:    make(map[object.ID]object.Object),
		isNew:   make(map[object.ID]bool),
		isDirty: make(map[object.ID]bool),
	}
}

// Context returns the submission context.
func (t *Txn) Context() context.Context {
	return t.ctx
}

// Sender returns the submitting address.
func (t *Txn) Sender() object.Address {
	return t.req.Sender
}

// Now returns the transaction timestamp. Transaction logic uses it instead of
// the wall clock so replays are deterministic.
func (t *Txn) Now() time.Time {
	return t.req.Timestamp
}

// TxID returns the transaction id.
func (t *Txn) TxID() string {
	return t.req.TxID
}

// Read returns the object as this transaction sees it: its own staged changes
// first, then the committed state, recording the observed version.
func (t *Txn) Read(id object.ID) (object.Object, error) {
	if obj, ok := t.view[id]; ok {
		return obj.Clone(), nil
	}
	obj, err := t.reader.Get(t.ctx, id)
	if err != nil {
		return object.Object{}, err
	}
	t.reads[id] = obj.Version
	t.view[id] = obj.Clone()
	return obj, nil
}

// Exists reports whether id resolves in this transaction's view.
func (t *Txn) Exists(id object.ID) (bool, error) {
	_, err := t.Read(id)
	if err == nil {
		return true, nil
	}
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return false, nil
	}
	return false, err
}

// Load reads id, checks its type and decodes its payload into target.
func (t *Txn) Load(id object.ID, typ string, target any) (object.Object, error) {
	obj, err := t.Read(id)
	if err != nil {
		return object.Object{}, err
	}
	if obj.Type != typ {
		return object.Object{}, objectstore.TypeMismatch(id, typ, obj.Type)
	}
	if target != nil {
		if err := obj.Decode(target); err != nil {
			return object.Object{}, err
		}
	}
	return obj, nil
}

// Borrow loads an object presented as a capability. Exclusive objects must be
// owned by the sender.
func (t *Txn) Borrow(id object.ID, typ string, target any) (object.Object, error) {
	obj, err := t.Load(id, typ, target)
	if err != nil {
		return object.Object{}, err
	}
	if obj.Owner.IsExclusive() && !obj.Owner.OwnedBy(t.req.Sender) {
		return object.Object{}, objectstore.Unauthorized(t.req.Sender, id, "sender does not own the object")
	}
	return obj, nil
}

// Create stages a new object at a fresh id derived from the transaction id.
func (t *Txn) Create(typ string, owner object.Owner, payload any) (object.Ref, error) {
	id := object.DeriveID(t.req.TxID, t.nextID)
	t.nextID++
	return t.CreateAt(id, typ, owner, payload)
}

// CreateAt stages a new object at a reserved id.
func (t *Txn) CreateAt(id object.ID, typ string, owner object.Owner, payload any) (object.Ref, error) {
	if typ == "" {
		return object.Ref{}, fmt.Errorf("object type is required")
	}
	if err := owner.Validate(); err != nil {
		return object.Ref{}, err
	}
	exists, err := t.Exists(id)
	if err != nil {
		return object.Ref{}, err
	}
	if exists {
		return object.Ref{}, InvariantViolation(fmt.Sprintf("object %s already exists", id))
	}
	raw, err := canonicalPayload(payload)
	if err != nil {
		return object.Ref{}, err
	}
	obj := object.Object{ID: id, Version: 0, Owner: owner, Type: typ, Payload: raw}
	t.view[id] = obj
	t.isNew[id] = true
	t.created = append(t.created, id)
	return obj.Ref(), nil
}

// Write replaces the payload of an object the transaction has read.
// expectedVersion must match the version this transaction observed.
func (t *Txn) Write(id object.ID, expectedVersion uint64, payload any) error {
	obj, err := t.writable(id, expectedVersion)
	if err != nil {
		return err
	}
	raw, err := canonicalPayload(payload)
	if err != nil {
		return err
	}
	obj.Payload = raw
	t.stage(obj)
	return nil
}

// TransferOwner hands an exclusive object to another address.
func (t *Txn) TransferOwner(id object.ID, expectedVersion uint64, newOwner object.Owner) error {
	obj, err := t.Read(id)
	if err != nil {
		return err
	}
	if !obj.Owner.IsExclusive() || !newOwner.IsExclusive() {
		return objectstore.Unauthorized(t.req.Sender, id, "only exclusive objects can be transferred")
	}
	if err := newOwner.Validate(); err != nil {
		return err
	}
	obj, err = t.writable(id, expectedVersion)
	if err != nil {
		return err
	}
	obj.Owner = newOwner
	t.stage(obj)
	return nil
}

func (t *Txn) writable(id object.ID, expectedVersion uint64) (object.Object, error) {
	obj, err := t.Read(id)
	if err != nil {
		return object.Object{}, err
	}
	observed := obj.Version
	if !t.isNew[id] {
		observed = t.reads[id]
	}
	if expectedVersion != observed {
		return object.Object{}, objectstore.VersionConflict(id, expectedVersion, observed)
	}
	if obj.Owner.IsExclusive() && !obj.Owner.OwnedBy(t.req.Sender) {
		return object.Object{}, objectstore.Unauthorized(t.req.Sender, id, "sender does not own the object")
	}
	return obj, nil
}

func (t *Txn) stage(obj object.Object) {
	t.view[obj.ID] = obj
	if t.isNew[obj.ID] || t.isDirty[obj.ID] {
		return
	}
	t.isDirty[obj.ID] = true
	t.dirty = append(t.dirty, obj.ID)
}

// Emit buffers an event. Events are appended only if the transaction commits.
func (t *Txn) Emit(kind event.Kind, entityID object.ID, payload any) error {
	raw, err := canonicalPayload(payload)
	if err != nil {
		return err
	}
	t.events = append(t.events, event.Event{
		TxID:      t.req.TxID,
		Index:     uint32(len(t.events)),
		Kind:      kind,
		EntityID:  string(entityID),
		Sender:    string(t.req.Sender),
		Timestamp: t.req.Timestamp,
		Payload:   raw,
	})
	return nil
}

// changes assembles the commit set. Updated objects get exactly one version
// bump regardless of how many times they were written.
func (t *Txn) changes() ChangeSet {
	cs := ChangeSet{Reads: make(map[object.ID]uint64, len(t.reads))}
	for id, version := range t.reads {
		cs.Reads[id] = version
	}
	for _, id := range t.created {
		cs.Created = append(cs.Created, t.view[id].Clone())
	}
	for _, id := range t.dirty {
		obj := t.view[id].Clone()
		obj.Version = t.reads[id] + 1
		cs.Updated = append(cs.Updated, obj)
	}
	cs.Events = append(cs.Events, t.events...)
	return cs
}

func canonicalPayload(payload any) (json.RawMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		raw = []byte("{}")
	case json.RawMessage:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		raw = encoded
	}
	canonical, err := encoding.CanonicalJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("canonical payload: %w", err)
	}
	return canonical, nil
}
