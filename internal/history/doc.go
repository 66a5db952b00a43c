// Package history keeps a SQLite journal of what the watcher did with each
// candidate: moved, skipped, failed, or timed out.
//
// The journal is append-only apart from retention pruning. It records
// outcomes for inspection through the CLI and is never used to reverse a move.
package history
