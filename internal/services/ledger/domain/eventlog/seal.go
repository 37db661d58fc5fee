// Package eventlog is the append-only record of events emitted by committed
// transactions: sealing, querying, filtering and integrity verification.
package eventlog

import (
	"fmt"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
)

// ChainScope is the key-derivation scope for event chain signatures.
const ChainScope = "ledger"

// Signer signs chain hashes.
type Signer interface {
	SignChainHash(scope, chainHash string) (signature string, keyID string, err error)
}

// Verifier checks chain hash signatures.
type Verifier interface {
	VerifyChainHash(scope, chainHash, signature, keyID string) error
}

// StorageExhausted reports that the log cannot accept more events. The
// condition is fatal for the process.
func StorageExhausted(reason string, cause error) error {
	return apperrors.Wrap(apperrors.CodeStorageExhausted, "event storage exhausted: "+reason, cause)
}

// Seal fills hash, chain and signature fields for events that already carry
// their sequence numbers. prevChainHash is the chain hash of the event before
// the first one ("" at the start of the log). It returns the sealed events and
// the chain hash of the last one.
func Seal(signer Signer, prevChainHash string, evts []event.Event) ([]event.Event, string, error) {
	sealed := make([]event.Event, len(evts))
	for i, evt := range evts {
		hash, err := event.EventHash(evt)
		if err != nil {
			return nil, "", fmt.Errorf("event %d hash: %w", i, err)
		}
		evt.Hash = hash

		chainHash, err := event.ChainHash(evt, prevChainHash)
		if err != nil {
			return nil, "", fmt.Errorf("event %d chain hash: %w", i, err)
		}
		evt.PrevHash = prevChainHash
		evt.ChainHash = chainHash
		evt.Signature = ""
		evt.SignatureKeyID = ""
		if signer != nil {
			signature, keyID, err := signer.SignChainHash(ChainScope, chainHash)
			if err != nil {
				return nil, "", fmt.Errorf("event %d sign: %w", i, err)
			}
			evt.Signature = signature
			evt.SignatureKeyID = keyID
		}

		prevChainHash = chainHash
		sealed[i] = evt
	}
	return sealed, prevChainHash, nil
}

// VerifyChain re-derives hashes for a contiguous run of events starting after
// prevChainHash and checks signatures when verifier is set. It returns the
// chain hash of the last event.
func VerifyChain(verifier Verifier, prevChainHash string, evts []event.Event) (string, error) {
	for _, evt := range evts {
		if evt.PrevHash != prevChainHash {
			return "", fmt.Errorf("prev hash mismatch seq=%d", evt.Seq)
		}
		hash, err := event.EventHash(evt)
		if err != nil {
			return "", fmt.Errorf("compute event hash seq=%d: %w", evt.Seq, err)
		}
		if hash != evt.Hash {
			return "", fmt.Errorf("event hash mismatch seq=%d", evt.Seq)
		}
		chainHash, err := event.ChainHash(evt, prevChainHash)
		if err != nil {
			return "", fmt.Errorf("compute chain hash seq=%d: %w", evt.Seq, err)
		}
		if chainHash != evt.ChainHash {
			return "", fmt.Errorf("chain hash mismatch seq=%d", evt.Seq)
		}
		if verifier != nil {
			if err := verifier.VerifyChainHash(ChainScope, evt.ChainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return "", fmt.Errorf("signature mismatch seq=%d: %w", evt.Seq, err)
			}
		}
		prevChainHash = chainHash
	}
	return prevChainHash, nil
}
