package history

import (
	"fmt"
	"strings"
	"time"
)

// Status is the journaled outcome of one candidate.
type Status string

const (
	StatusMoved    Status = "moved"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// Statuses lists every journaled status.
func Statuses() []Status {
	return []Status{StatusMoved, StatusSkipped, StatusFailed, StatusTimedOut}
}

// ParseStatus maps user input onto a Status.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, status := range Statuses() {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Entry is one journal row.
type Entry struct {
	ID          string
	CandidateID string
	Status      Status
	Source      string
	Destination string
	Category    string
	Reason      string
	Error       string
	Size        int64
	Wait        time.Duration
	RecordedAt  time.Time
}

// Filter narrows List results.
type Filter struct {
	Status Status
	// Limit caps the number of rows; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is the number of rows List returns when Filter.Limit is zero.
const DefaultListLimit = 50
