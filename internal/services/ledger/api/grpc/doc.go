// Package ledgergrpc serves the ledger over gRPC.
//
// Messages are google.protobuf.Struct values carrying the same JSON shapes the
// HTTP API returns, so the service needs no generated stubs. Submit requires
// an authenticated sender; queries are public.
package ledgergrpc
