package integrity

import (
	"fmt"
	"strings"
)

// DefaultKeyID names a single configured key.
const DefaultKeyID = "v1"

// Config is the keyring configuration, usually read from
// LEDGER_EVENT_HMAC_KEYS, LEDGER_EVENT_HMAC_KEY and LEDGER_EVENT_HMAC_KEY_ID.
type Config struct {
	// Keys is a comma separated list of id=secret pairs.
	Keys string `env:"LEDGER_EVENT_HMAC_KEYS" yaml:"keys"`
	// Key is a single secret stored under KeyID.
	Key   string `env:"LEDGER_EVENT_HMAC_KEY" yaml:"key"`
	KeyID string `env:"LEDGER_EVENT_HMAC_KEY_ID" yaml:"key_id"`
}

// Enabled reports whether any key material is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Keys) != "" || strings.TrimSpace(c.Key) != ""
}

// Keyring builds the configured keyring. Keys wins over Key when both are set.
func (c Config) Keyring() (*Keyring, error) {
	keyID := strings.TrimSpace(c.KeyID)
	if keyID == "" {
		keyID = DefaultKeyID
	}
	if strings.TrimSpace(c.Keys) == "" {
		secret := strings.TrimSpace(c.Key)
		if secret == "" {
			return nil, fmt.Errorf("LEDGER_EVENT_HMAC_KEY is required")
		}
		return NewKeyring(map[string][]byte{keyID: []byte(secret)}, keyID)
	}
	keys, err := ParseKeySpec(c.Keys)
	if err != nil {
		return nil, err
	}
	return NewKeyring(keys, keyID)
}

// ParseKeySpec parses "id=secret,id2=secret2".
func ParseKeySpec(spec string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, secret, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		secret = strings.TrimSpace(secret)
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid key spec entry %q", entry)
		}
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("duplicate key id %q", id)
		}
		keys[id] = []byte(secret)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("key spec has no entries")
	}
	return keys, nil
}
