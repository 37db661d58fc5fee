// Package timeouts defines shared timeout constants used across ledger
// processes so client and server boundaries agree on them.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a ledger gRPC endpoint.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single unary ledger call.
const GRPCRequest = 5 * time.Second

// ReadHeader limits how long the HTTP query server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// RelayInterval is the default delay between event relay polls.
const RelayInterval = time.Second
