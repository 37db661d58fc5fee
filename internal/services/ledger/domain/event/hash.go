package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/encoding"
)

// hashEnvelope fixes the fields covered by the content hash. Integrity
// fields are excluded so that hashing is independent of signing.
type hashEnvelope struct {
	Seq         uint64          `json:"seq"`
	TxID        string          `json:"tx_id"`
	TxSeq       uint64          `json:"tx_seq"`
	Index       uint32          `json:"index"`
	Kind        Kind            `json:"kind"`
	EntityID    string          `json:"entity_id"`
	Sender      string          `json:"sender"`
	TimestampMs int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload"`
}

type chainEnvelope struct {
	Seq       uint64 `json:"seq"`
	EventHash string `json:"event_hash"`
	PrevHash  string `json:"prev_hash"`
}

// EventHash computes the content hash of a single event.
func EventHash(evt Event) (string, error) {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return encoding.ContentHash(hashEnvelope{
		Seq:         evt.Seq,
		TxID:        evt.TxID,
		TxSeq:       evt.TxSeq,
		Index:       evt.Index,
		Kind:        evt.Kind,
		EntityID:    evt.EntityID,
		Sender:      evt.Sender,
		TimestampMs: evt.Timestamp.UTC().UnixMilli(),
		Payload:     payload,
	})
}

// ChainHash links an event to its predecessor's chain hash. The first event
// of the log uses an empty prevHash.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	canonical, err := encoding.CanonicalJSON(chainEnvelope{
		Seq:       evt.Seq,
		EventHash: evt.Hash,
		PrevHash:  prevHash,
	})
	if err != nil {
		return "", fmt.Errorf("canonical chain envelope: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
