// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnknownOperation Code = "UNKNOWN_OPERATION"
	CodeTypeMismatch     Code = "TYPE_MISMATCH"

	// Object store errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeVersionConflict Code = "VERSION_CONFLICT"
	CodeUnauthorized    Code = "UNAUTHORIZED"

	// Workload errors
	CodeAlreadyVoted       Code = "ALREADY_VOTED"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"

	// Storage errors
	CodeStorageExhausted Code = "STORAGE_EXHAUSTED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidArgument,
		CodeUnknownOperation,
		CodeTypeMismatch:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeAlreadyVoted,
		CodeInvariantViolation:
		return codes.FailedPrecondition

	// Aborted - concurrent modification, the caller retries with fresh reads
	case CodeVersionConflict:
		return codes.Aborted

	case CodeNotFound:
		return codes.NotFound

	case CodeUnauthorized:
		return codes.PermissionDenied

	case CodeStorageExhausted:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}

// Retryable reports whether a transaction failing with this code may succeed
// when resubmitted against fresher state.
func (c Code) Retryable() bool {
	return c == CodeVersionConflict
}
