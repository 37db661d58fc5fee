package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestLedgerMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(LedgerFS, "ledger")
	if err != nil {
		t.Fatalf("read ledger migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected ledger migrations")
	}
	for _, entry := range entries {
		content, err := fs.ReadFile(LedgerFS, "ledger/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if !strings.Contains(string(content), "-- +migrate Up") {
			t.Fatalf("%s is missing an Up section", entry.Name())
		}
	}
}
