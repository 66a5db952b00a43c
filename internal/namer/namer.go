// Package namer picks collision-free destination paths.
package namer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"downsort/internal/fileutil"
)

// maxAttempts bounds the candidate sequence so a pathological directory cannot
// spin forever.
const maxAttempts = 100000

// Unique returns a path in dir that did not exist when checked: dir/name if
// free, otherwise the first free dir/"stem (N)ext" for N = 1, 2, ....
// The result is only a hint; callers must still handle a collision at write time.
func Unique(dir, name string) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	candidate := filepath.Join(dir, name)
	free, err := isFree(candidate)
	if err != nil || free {
		return candidate, err
	}

	stem, ext := fileutil.SplitExt(name)
	for n := 1; n <= maxAttempts; n++ {
		candidate = filepath.Join(dir, stem+" ("+strconv.Itoa(n)+")"+ext)
		free, err := isFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %q in %s", name, dir)
}

// isFree uses Lstat so dangling symlinks still occupy their name.
func isFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}
