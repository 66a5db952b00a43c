// Package watcher turns filesystem notifications on one directory into
// stabilized, categorized moves.
//
// A Source owns the non-recursive fsnotify subscription and reports creations
// and in-place renames to a Consumer. The Controller is the Consumer used in
// production: it filters each event, waits for the file to stop changing,
// hands it to the mover, and logs and journals the outcome. With a
// concurrency of one the Controller handles candidates strictly in arrival
// order; higher values stabilize that many candidates at once.
package watcher
