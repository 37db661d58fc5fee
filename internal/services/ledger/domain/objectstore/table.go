package objectstore

import (
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

// Table is an in-memory committed object table. It is not safe for
// concurrent use; the owning store serializes access.
type Table struct {
	objects map[object.ID]object.Object
	order   []object.ID
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{objects: make(map[object.ID]object.Object)}
}

// Len returns the number of stored objects.
func (t *Table) Len() int {
	return len(t.objects)
}

// Get returns a copy of the object stored under id.
func (t *Table) Get(id object.ID) (object.Object, bool) {
	obj, ok := t.objects[id]
	if !ok {
		return object.Object{}, false
	}
	return obj.Clone(), true
}

// List returns copies of matching objects in creation order.
func (t *Table) List(filter Filter) []object.Object {
	var out []object.Object
	for _, id := range t.order {
		obj := t.objects[id]
		if !filter.Match(obj) {
			continue
		}
		out = append(out, obj.Clone())
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Validate checks that every read still has the observed version and that no
// created id is already taken. It does not modify the table.
func (t *Table) Validate(reads map[object.ID]uint64, created []object.Object) error {
	for id, observed := range reads {
		current, ok := t.objects[id]
		if !ok {
			return NotFound(id)
		}
		if current.Version != observed {
			return VersionConflict(id, observed, current.Version)
		}
	}
	for _, obj := range created {
		if _, exists := t.objects[obj.ID]; exists {
			return AlreadyExists(obj.ID)
		}
	}
	return nil
}

// Apply inserts created objects and replaces updated ones. Callers validate
// first; Apply assumes the change set is consistent with the table.
func (t *Table) Apply(created, updated []object.Object) {
	for _, obj := range created {
		t.objects[obj.ID] = obj.Clone()
		t.order = append(t.order, obj.ID)
	}
	for _, obj := range updated {
		t.objects[obj.ID] = obj.Clone()
	}
}
