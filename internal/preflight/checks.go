package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WatchDirName is the result name of the watched directory check.
const WatchDirName = "Watch directory"

// CheckWatchDir verifies that the watched directory exists and that files
// can be listed and removed from it.
func CheckWatchDir(path string) Result {
	return CheckDirectoryAccess(WatchDirName, path)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDir passes when the directory exists and is writable, or
// when it is missing and its nearest existing ancestor allows creating it.
func CheckCreatableDir(name, path string) Result {
	_, err := os.Stat(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}

	ancestor := filepath.Dir(path)
	for {
		info, statErr := os.Stat(ancestor)
		if statErr == nil {
			if !info.IsDir() {
				return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}
