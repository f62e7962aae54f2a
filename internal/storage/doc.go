// Package storage persists the delivery ledger so a restart does not
// re-alert on notifications that were already surfaced.
//
// It currently supports:
//   - sqlite: a single database file (modernc.org/sqlite, WAL)
//   - file: a dependency-free JSONL journal with snapshot compaction
package storage
