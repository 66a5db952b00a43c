package mover

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrDestinationExists reports that the chosen destination was taken when
// the rename ran.
var ErrDestinationExists = errors.New("destination already exists")

// Status is the coarse outcome of a move.
type Status int

const (
	StatusMoved Status = iota
	StatusSourceMissing
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusMoved:
		return "moved"
	case StatusSourceMissing:
		return "source_missing"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FailureKind tags why a move did not happen.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureSourceVanished
	FailureCollision
	FailureUnwritable
	FailurePermission
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureSourceVanished:
		return "source_vanished"
	case FailureCollision:
		return "collision"
	case FailureUnwritable:
		return "destination_unwritable"
	case FailurePermission:
		return "permission_denied"
	case FailureOther:
		return "other"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Result describes one move attempt.
type Result struct {
	Status      Status
	Kind        FailureKind
	Source      string
	Destination string
	Category    string
	Size        int64
	// Attempts counts rename attempts, including the collision retry.
	Attempts int
	// CrossDevice is set when the file was copied rather than renamed.
	CrossDevice bool
	Err         error
}

// Moved reports whether the file reached its destination.
func (r Result) Moved() bool {
	return r.Status == StatusMoved
}

func failureKind(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrDestinationExists):
		return FailureCollision
	case errors.Is(err, fs.ErrPermission):
		return FailurePermission
	case errors.Is(err, syscall.EROFS), errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.ENOTDIR):
		return FailureUnwritable
	default:
		return FailureOther
	}
}
