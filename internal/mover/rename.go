package mover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// linkRename emulates a no-replace rename with link + unlink. os.Link fails
// with EEXIST when dst is taken, which is the atomic check.
func linkRename(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrDestinationExists
		}
		if linkUnsupported(err) {
			return &os.LinkError{Op: "link", Old: src, New: dst, Err: syscall.EXDEV}
		}
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after link: %w", err)
	}
	return nil
}

// linkUnsupported reports link failures that a copy can work around:
// filesystems without hard links and protected_hardlinks refusals.
func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.EMLINK)
}
