// Package operation maps submitted operation kinds to transaction logic.
package operation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
)

// Kind names a submittable operation, such as "vote".
type Kind string

var (
	// ErrKindRequired indicates a missing operation kind.
	ErrKindRequired = errors.New("operation kind is required")
	// ErrHandlerRequired indicates a definition without a handler.
	ErrHandlerRequired = errors.New("operation handler is required")
)

// Handler runs an operation inside a transaction.
type Handler func(txn *engine.Txn, args json.RawMessage) (any, error)

// Definition describes one operation.
type Definition struct {
	Kind        Kind
	Description string
	Handle      Handler
}

// Registry holds operation definitions.
type Registry struct {
	definitions map[Kind]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Kind]Definition)}
}

// Register adds a definition.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Kind = Kind(strings.TrimSpace(string(def.Kind)))
	if def.Kind == "" {
		return ErrKindRequired
	}
	if def.Handle == nil {
		return ErrHandlerRequired
	}
	if _, exists := r.definitions[def.Kind]; exists {
		return fmt.Errorf("operation kind already registered: %s", def.Kind)
	}
	r.definitions[def.Kind] = def
	return nil
}

// Definition returns the definition for kind.
func (r *Registry) Definition(kind Kind) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[kind]
	return def, ok
}

// ListDefinitions returns all definitions sorted by kind.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil {
		return nil
	}
	defs := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Kind < defs[j].Kind
	})
	return defs
}

// Bind resolves kind and binds args, producing transaction logic for the
// executor. Unknown kinds fail with UNKNOWN_OPERATION.
func (r *Registry) Bind(kind Kind, args json.RawMessage) (engine.TxnFunc, error) {
	def, ok := r.Definition(Kind(strings.TrimSpace(string(kind))))
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownOperation,
			fmt.Sprintf("unknown operation %q", kind),
			map[string]string{"Operation": string(kind)})
	}
	return func(txn *engine.Txn) (any, error) {
		return def.Handle(txn, args)
	}, nil
}

// DecodeArgs strictly decodes operation arguments. Empty args decode as {}.
func DecodeArgs(args json.RawMessage, target any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return engine.InvalidArgument("args", err.Error())
	}
	if dec.More() {
		return engine.InvalidArgument("args", "trailing data after arguments")
	}
	return nil
}
