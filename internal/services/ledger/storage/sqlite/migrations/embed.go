// Package migrations embeds the ledger SQLite schema.
package migrations

import "embed"

// LedgerFS holds the ledger migrations under ledger/.
//
//go:embed ledger/*.sql
var LedgerFS embed.FS
