package object

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	idPrefix    = "0x"
	idHexLength = 64
	idDomain    = "objectledger/object"
)

// ID is a stable object identifier: 0x followed by 64 lowercase hex digits.
type ID string

// String returns the id text.
func (id ID) String() string {
	return string(id)
}

// ParseID validates raw as an object id, accepting upper-case hex.
func ParseID(raw string) (ID, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(trimmed, idPrefix) {
		return "", fmt.Errorf("object id %q must start with %s", raw, idPrefix)
	}
	digits := trimmed[len(idPrefix):]
	if len(digits) != idHexLength {
		return "", fmt.Errorf("object id %q must have %d hex digits", raw, idHexLength)
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", fmt.Errorf("object id %q is not hex: %w", raw, err)
	}
	return ID(trimmed), nil
}

// DeriveID returns the id of the index-th object created by transaction
// txID. Replaying a transaction allocates the same ids.
func DeriveID(txID string, index uint32) ID {
	h := sha256.New()
	h.Write([]byte(idDomain))
	h.Write([]byte{0})
	h.Write([]byte(txID))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], index)
	h.Write(buf[:])
	return ID(idPrefix + hex.EncodeToString(h.Sum(nil)))
}

// ReservedID returns a fixed id for a well-known singleton named seed.
// Reserved ids never collide with derived ones because the hash input
// carries a different domain tag.
func ReservedID(seed string) ID {
	sum := sha256.Sum256([]byte(idDomain + "/reserved\x00" + seed))
	return ID(idPrefix + hex.EncodeToString(sum[:]))
}
