// Package logs reads the run logs written by "downsort watch".
//
// Last returns the trailing lines of a log with bounded memory, and Follow
// streams lines as they are appended. Follow re-reads from the start when the
// file shrinks or the downsort.log pointer is swapped to a new run, and only
// ever emits complete lines.
package logs
