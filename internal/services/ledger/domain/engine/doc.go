// Package engine executes ledger transactions.
//
// A transaction function runs against a Txn view: reads are recorded with the
// version first observed, and creations, writes, transfers and events are
// buffered. Commit hands the buffered ChangeSet to a Store, which validates
// the read set and applies everything atomically or nothing at all. Callers
// retry on VERSION_CONFLICT with fresh reads.
package engine
