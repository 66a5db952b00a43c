package watcher

import "time"

// Consumer receives filesystem notifications for the watched directory.
type Consumer interface {
	OnCreated(path string)
	OnRenamed(oldPath, newPath string)
}

// EventKind represents the type of filesystem event.
type EventKind int

const (
	// EventCreated is emitted when a new entry appears.
	EventCreated EventKind = iota
	// EventRenamed is emitted when an entry is renamed in place.
	EventRenamed
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one queued notification. For renames Path is the new name.
type Event struct {
	Kind     EventKind
	Path     string
	OldPath  string
	Received time.Time
}
