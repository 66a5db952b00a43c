package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// DefaultFollowInterval is how often Follow checks for new lines.
const DefaultFollowInterval = 250 * time.Millisecond

// Last returns up to n trailing lines of path and the byte offset after the
// last complete line. A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	if n > 0 {
		ring = make([]string, n)
	}
	count, idx := 0, 0
	offset, err := readLines(file, func(line string) {
		if n <= 0 {
			return
		}
		ring[idx] = line
		idx = (idx + 1) % n
		if count < n {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == n && n > 0 {
		for i := range count {
			lines[i] = ring[(idx+i)%n]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow calls emit for every complete line appended to path after offset
// and returns when ctx is done. A non-positive interval selects
// DefaultFollowInterval.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = DefaultFollowInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var current os.FileInfo
	for {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			offset, current = 0, nil
		case err != nil:
			return fmt.Errorf("stat log file: %w", err)
		default:
			if current != nil && !os.SameFile(current, info) {
				offset = 0
			}
			if info.Size() < offset {
				offset = 0
			}
			current = info
			if info.Size() > offset {
				next, err := readFrom(path, offset, emit)
				if err != nil {
					return err
				}
				offset = next
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := readLines(file, emit)
	return offset + read, err
}

// readLines emits each newline-terminated line of r and returns the number of
// bytes consumed. A trailing partial line is left unread.
func readLines(r io.Reader, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		emit(strings.TrimRight(line, "\r\n"))
	}
}
