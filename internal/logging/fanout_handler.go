package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to a primary and a secondary handler, each
// applying its own level filter.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	if h.primary.Enabled(ctx, record.Level) {
		errs = append(errs, h.primary.Handle(ctx, record.Clone()))
	}
	if h.secondary.Enabled(ctx, record.Level) {
		errs = append(errs, h.secondary.Handle(ctx, record))
	}
	return errors.Join(errs...)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}

// TeeLogger duplicates log output from base into extra. A nil base or extra
// yields the other one unchanged.
func TeeLogger(base *slog.Logger, extra *slog.Logger) *slog.Logger {
	switch {
	case base == nil && extra == nil:
		return NewNop()
	case base == nil:
		return extra
	case extra == nil:
		return base
	}
	return slog.New(teeHandler{primary: base.Handler(), secondary: extra.Handler()})
}
