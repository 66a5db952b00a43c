// Package daemon coordinates the long-running downsort watch process.
//
// It wires configuration, the category table, the stability monitor, the
// mover, and the optional history journal into a watcher Controller fed by a
// fsnotify Source, with flock-based locking to prevent two instances sorting
// the same directory.
//
// Keep orchestration logic here: the pipeline steps live in their own
// packages while the daemon focuses on startup, shutdown, and the session
// summary.
package daemon
