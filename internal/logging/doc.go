// Package logging assembles the structured slog loggers used by downsort.
//
// It owns the single-line console handler and the JSON handler, the shared
// field-name constants, and small helpers that keep warning and error lines
// carrying an event type and a hint. A no-op logger is provided for tests and
// for wiring code that has no logger to hand.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same shape.
package logging
