// Package integrity signs and verifies event chain hashes with rotating HMAC
// keys. Per-scope keys are derived from each root key with HKDF.
package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Keyring holds root HMAC keys by id and the id used for new signatures.
// Retired keys stay in the ring so older events still verify.
type Keyring struct {
	keys        map[string][]byte
	activeKeyID string
}

// NewKeyring builds a keyring. activeKeyID must name one of keys.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("hmac keys are required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, fmt.Errorf("active hmac key id is required")
	}
	if _, ok := keys[activeKeyID]; !ok {
		return nil, fmt.Errorf("active hmac key id %q is not configured", activeKeyID)
	}
	copied := make(map[string][]byte, len(keys))
	for id, key := range keys {
		copied[id] = append([]byte(nil), key...)
	}
	return &Keyring{keys: copied, activeKeyID: activeKeyID}, nil
}

// ActiveKeyID returns the signing key id.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.activeKeyID
}

// SignChainHash signs chainHash for scope with the active key.
func (k *Keyring) SignChainHash(scope, chainHash string) (string, string, error) {
	if k == nil {
		return "", "", fmt.Errorf("hmac keyring is not configured")
	}
	key, err := k.scopeKey(k.activeKeyID, scope)
	if err != nil {
		return "", "", err
	}
	return hmacHex(key, chainHash), k.activeKeyID, nil
}

// VerifyChainHash checks a signature produced by SignChainHash with keyID.
func (k *Keyring) VerifyChainHash(scope, chainHash, signature, keyID string) error {
	if k == nil {
		return fmt.Errorf("hmac keyring is not configured")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return fmt.Errorf("signature key id is required")
	}
	key, err := k.scopeKey(keyID, scope)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(hmacHex(key, chainHash)), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func (k *Keyring) scopeKey(keyID, scope string) ([]byte, error) {
	root, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("hmac key id %q is unknown", keyID)
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, fmt.Errorf("signing scope is required")
	}
	key, err := hkdf.Key(sha256.New, root, nil, "chain:"+scope, 32)
	if err != nil {
		return nil, fmt.Errorf("derive scope key: %w", err)
	}
	return key, nil
}

func hmacHex(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
