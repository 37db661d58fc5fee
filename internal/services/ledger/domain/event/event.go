package event

import (
	"encoding/json"
	"time"
)

// Kind names a class of events, such as "proposal.created".
type Kind string

// Event is one append-only record of the event log.
type Event struct {
	// Seq is the position in the log, assigned at commit starting at 1.
	Seq uint64 `json:"seq"`
	// TxID and TxSeq identify the committing transaction.
	TxID  string `json:"tx_id"`
	TxSeq uint64 `json:"tx_seq"`
	// Index is the emission position within the transaction.
	Index     uint32          `json:"index"`
	Kind      Kind            `json:"kind"`
	EntityID  string          `json:"entity_id"`
	Sender    string          `json:"sender"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`

	Hash           string `json:"hash,omitempty"`
	PrevHash       string `json:"prev_hash,omitempty"`
	ChainHash      string `json:"chain_hash,omitempty"`
	Signature      string `json:"signature,omitempty"`
	SignatureKeyID string `json:"signature_key_id,omitempty"`
}

// Decode unmarshals the payload into target.
func (e Event) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}
