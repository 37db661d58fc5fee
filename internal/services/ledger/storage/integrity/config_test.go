package integrity

import "testing"

func TestConfigKeyringSingleKey(t *testing.T) {
	ring, err := Config{Key: "secret", KeyID: "  "}.Keyring()
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	if ring.ActiveKeyID() != DefaultKeyID {
		t.Fatalf("expected default key id, got %s", ring.ActiveKeyID())
	}
}

func TestConfigKeyringRequiresKey(t *testing.T) {
	cfg := Config{Keys: "  "}
	if cfg.Enabled() {
		t.Fatal("expected blank config to be disabled")
	}
	if _, err := cfg.Keyring(); err == nil {
		t.Fatal("expected error without key material")
	}
}

func TestConfigKeyringKeySpec(t *testing.T) {
	cfg := Config{Keys: "k1=one, k2=two", Key: "ignored", KeyID: "k2"}
	ring, err := cfg.Keyring()
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	if ring.ActiveKeyID() != "k2" {
		t.Fatalf("expected k2, got %s", ring.ActiveKeyID())
	}
	if _, err := (Config{Keys: "k1=one", KeyID: "k2"}).Keyring(); err == nil {
		t.Fatal("expected error when active id is absent from spec")
	}
}

func TestParseKeySpecErrors(t *testing.T) {
	for _, spec := range []string{"k1", "=one", "k1=", "k1=a,k1=b", ",,"} {
		if _, err := ParseKeySpec(spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}
