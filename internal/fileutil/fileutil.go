package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SplitExt splits a base file name into stem and extension (including the dot).
// A leading dot does not start an extension, so ".bashrc" has no extension and
// "archive.tar.gz" splits into "archive.tar" and ".gz".
func SplitExt(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// Ext returns the extension of name without the dot, or "" when it has none.
func Ext(name string) string {
	_, ext := SplitExt(name)
	return strings.TrimPrefix(ext, ".")
}

// CopyNoClobber streams src to dst with SHA256 + size integrity verification.
// dst is created exclusively: an existing dst yields an error matching
// os.ErrExist and is left untouched. On any failure after creation dst is
// removed. The source mode and modification time are carried over.
func CopyNoClobber(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	cleanup := func(cause error) error {
		_ = out.Close()
		_ = os.Remove(dst)
		return cause
	}

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return cleanup(err)
	}
	if err := out.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync destination: %w", err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}

	// Best effort; a destination filesystem without mtime support is not an error.
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return nil
}
