// Package mover relocates stabilized files into their category directory.
//
// Moves never replace an existing file. On Linux the rename uses
// RENAME_NOREPLACE; elsewhere, and on filesystems without that flag, a hard
// link followed by an unlink gives the same guarantee. Moves across
// filesystems fall back to an exclusive, checksum-verified copy. A collision
// detected at move time recomputes the destination name once before giving
// up. Every outcome is reported as a Result; Move never panics and never
// returns a bare error.
package mover
