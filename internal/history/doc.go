// Package history stores the durable job ledger in SQLite. The remote
// analysis service forgets jobs on restart; the ledger lets the CLI list and
// inspect past submissions.
package history
