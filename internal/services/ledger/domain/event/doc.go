// Package event defines the ledger event envelope and the kind registry.
//
// Events are facts emitted by committed transactions. Workload code buffers
// them on its transaction; the registry validates kind and payload before the
// store assigns sequence numbers and integrity hashes at commit. Events of one
// transaction are always stored contiguously and in emission order.
package event
