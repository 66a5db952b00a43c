// Package stability decides when a file has finished being written.
//
// A Monitor polls a candidate's size on a fixed interval. Once the size has
// compared equal to the previous poll a threshold number of times in a row the
// candidate is Stable. A candidate that disappears, stops being a regular
// file, or cannot be stat'ed is Vanished. A candidate still changing when the
// wait ceiling is reached is TimedOut, and a cancelled context yields
// Cancelled. Time is read through a Clock so tests can drive long waits
// instantly.
package stability
