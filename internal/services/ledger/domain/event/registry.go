package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/encoding"
)

var (
	// ErrKindRequired indicates a missing event kind.
	ErrKindRequired = errors.New("event kind is required")
	// ErrKindUnknown indicates an unregistered event kind.
	ErrKindUnknown = errors.New("event kind is not registered")
	// ErrTxIDRequired indicates an event not bound to a transaction.
	ErrTxIDRequired = errors.New("event transaction id is required")
	// ErrEntityIDRequired indicates an event without an entity.
	ErrEntityIDRequired = errors.New("event entity id is required")
	// ErrTimestampRequired indicates an event without a timestamp.
	ErrTimestampRequired = errors.New("event timestamp is required")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event kind.
type Definition struct {
	Kind            Kind
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
type Registry struct {
	definitions map[Kind]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Kind]Definition)}
}

// Register adds a new event kind definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Kind = Kind(strings.TrimSpace(string(def.Kind)))
	if def.Kind == "" {
		return ErrKindRequired
	}
	if r.definitions == nil {
		r.definitions = make(map[Kind]Definition)
	}
	if _, exists := r.definitions[def.Kind]; exists {
		return fmt.Errorf("event kind already registered: %s", def.Kind)
	}
	r.definitions[def.Kind] = def
	return nil
}

// ValidateForAppend validates and normalizes an event before it is stored.
// The payload is rewritten in canonical form.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	if r == nil {
		return Event{}, errors.New("registry is required")
	}
	evt.Kind = Kind(strings.TrimSpace(string(evt.Kind)))
	if evt.Kind == "" {
		return Event{}, ErrKindRequired
	}
	def, ok := r.definitions[evt.Kind]
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrKindUnknown, evt.Kind)
	}
	evt.TxID = strings.TrimSpace(evt.TxID)
	if evt.TxID == "" {
		return Event{}, ErrTxIDRequired
	}
	evt.EntityID = strings.TrimSpace(evt.EntityID)
	if evt.EntityID == "" {
		return Event{}, ErrEntityIDRequired
	}
	if evt.Timestamp.IsZero() {
		return Event{}, ErrTimestampRequired
	}

	if len(evt.Payload) == 0 {
		evt.Payload = json.RawMessage("{}")
	}
	if !json.Valid(evt.Payload) {
		return Event{}, ErrPayloadInvalid
	}
	canonical, err := encoding.CanonicalJSON(evt.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("canonical payload json: %w", err)
	}
	evt.Payload = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(evt.Payload); err != nil {
			return Event{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return evt, nil
}

// Definition returns the definition for a given kind.
func (r *Registry) Definition(kind Kind) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[Kind(strings.TrimSpace(string(kind)))]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Kind < definitions[j].Kind
	})
	return definitions
}
