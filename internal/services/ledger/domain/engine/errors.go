package engine

import (
	"errors"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
)

var (
	// ErrStoreRequired indicates a missing store.
	ErrStoreRequired = errors.New("store is required")
	// ErrEventRegistryRequired indicates a missing event registry.
	ErrEventRegistryRequired = errors.New("event registry is required")
	// ErrTxnFuncRequired indicates a missing transaction function.
	ErrTxnFuncRequired = errors.New("transaction function is required")
	// ErrTxIDRequired indicates a request without a transaction id.
	ErrTxIDRequired = errors.New("transaction id is required")
	// ErrTimestampRequired indicates a request without a timestamp.
	ErrTimestampRequired = errors.New("transaction timestamp is required")
)

// InvariantViolation aborts a transaction whose preconditions do not hold.
func InvariantViolation(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvariantViolation, reason, map[string]string{"Reason": reason})
}

// InvalidArgument reports malformed transaction arguments.
func InvalidArgument(field, reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, field+": "+reason, map[string]string{
		"Field":  field,
		"Reason": reason,
	})
}
