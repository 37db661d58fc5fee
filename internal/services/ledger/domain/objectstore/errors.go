package objectstore

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

// NotFound reports that id is absent from the store.
func NotFound(id object.ID) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("object %s not found", id),
		map[string]string{"ObjectID": string(id)})
}

// VersionConflict reports that id no longer has the version a transaction
// observed.
func VersionConflict(id object.ID, expected, actual uint64) error {
	return apperrors.WithMetadata(apperrors.CodeVersionConflict,
		fmt.Sprintf("object %s version conflict: expected %d, found %d", id, expected, actual),
		map[string]string{
			"ObjectID": string(id),
			"Expected": strconv.FormatUint(expected, 10),
			"Actual":   strconv.FormatUint(actual, 10),
		})
}

// AlreadyExists reports that a creation collided with a committed object.
// It is a version conflict: the creator saw the id as free.
func AlreadyExists(id object.ID) error {
	return apperrors.WithMetadata(apperrors.CodeVersionConflict,
		fmt.Sprintf("object %s was created concurrently", id),
		map[string]string{"ObjectID": string(id)})
}

// Busy reports storage lock contention on scope. Callers retry it like any
// other version conflict.
func Busy(scope string, cause error) error {
	return &apperrors.Error{
		Code:     apperrors.CodeVersionConflict,
		Message:  fmt.Sprintf("storage busy on %s", scope),
		Metadata: map[string]string{"ObjectID": scope},
		Cause:    cause,
	}
}

// Unauthorized reports that sender may not mutate or present id.
func Unauthorized(sender object.Address, id object.ID, reason string) error {
	return apperrors.WithMetadata(apperrors.CodeUnauthorized,
		fmt.Sprintf("sender %s unauthorized for object %s: %s", sender, id, reason),
		map[string]string{"Sender": string(sender), "ObjectID": string(id)})
}

// TypeMismatch reports that id holds a different type than requested.
func TypeMismatch(id object.ID, expected, actual string) error {
	return apperrors.WithMetadata(apperrors.CodeTypeMismatch,
		fmt.Sprintf("object %s has type %s, expected %s", id, actual, expected),
		map[string]string{"ObjectID": string(id), "Expected": expected, "Actual": actual})
}
