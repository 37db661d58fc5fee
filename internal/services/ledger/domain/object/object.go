// Package object defines versioned ledger objects and their ownership.
package object

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Address identifies a transaction sender and an exclusive owner.
type Address string

// ParseAddress normalizes and validates a sender address.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", fmt.Errorf("address is required")
	}
	if strings.ContainsFunc(trimmed, func(r rune) bool { return r <= ' ' || r == 0x7f }) {
		return "", fmt.Errorf("address %q contains whitespace or control characters", raw)
	}
	return Address(trimmed), nil
}

// String returns the address text.
func (a Address) String() string {
	return string(a)
}

// OwnerKind distinguishes exclusively owned objects from shared ones.
type OwnerKind string

const (
	// OwnerExclusive objects are mutated only by their owner's transactions.
	OwnerExclusive OwnerKind = "exclusive"
	// OwnerShared objects are mutable by any transaction under version checks.
	OwnerShared OwnerKind = "shared"
)

// Owner records who may mutate an object.
type Owner struct {
	Kind    OwnerKind `json:"kind"`
	Address Address   `json:"address,omitempty"`
}

// Exclusive returns an owner bound to addr.
func Exclusive(addr Address) Owner {
	return Owner{Kind: OwnerExclusive, Address: addr}
}

// Shared returns the shared owner.
func Shared() Owner {
	return Owner{Kind: OwnerShared}
}

// IsExclusive reports whether the object has a single owner.
func (o Owner) IsExclusive() bool {
	return o.Kind == OwnerExclusive
}

// OwnedBy reports whether addr exclusively owns the object.
func (o Owner) OwnedBy(addr Address) bool {
	return o.Kind == OwnerExclusive && o.Address == addr
}

// Validate checks that the owner is well formed.
func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerExclusive:
		if o.Address == "" {
			return fmt.Errorf("exclusive owner requires an address")
		}
	case OwnerShared:
		if o.Address != "" {
			return fmt.Errorf("shared owner must not carry an address")
		}
	default:
		return fmt.Errorf("unknown owner kind %q", o.Kind)
	}
	return nil
}

// String renders the owner for logs.
func (o Owner) String() string {
	if o.Kind == OwnerExclusive {
		return "exclusive(" + string(o.Address) + ")"
	}
	return string(o.Kind)
}

// Object is a versioned value held by the object store.
type Object struct {
	ID      ID              `json:"id"`
	Version uint64          `json:"version"`
	Owner   Owner           `json:"owner"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Ref is an (id, version) pair naming one committed object state.
type Ref struct {
	ID      ID     `json:"id"`
	Version uint64 `json:"version"`
}

// Ref returns the object's current reference.
func (o Object) Ref() Ref {
	return Ref{ID: o.ID, Version: o.Version}
}

// Clone returns a deep copy so callers cannot alias stored payloads.
func (o Object) Clone() Object {
	o.Payload = slices.Clone(o.Payload)
	return o
}

// Decode unmarshals the payload into target.
func (o Object) Decode(target any) error {
	if err := json.Unmarshal(o.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload for %s: %w", o.Type, o.ID, err)
	}
	return nil
}
