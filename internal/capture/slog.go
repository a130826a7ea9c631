package capture

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to a slog.Logger at debug level.
type SlogAdapter struct {
	log *slog.Logger
}

func NewSlogAdapter(log *slog.Logger) *SlogAdapter {
	return &SlogAdapter{log: log}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("kind", event.Kind),
		slog.Uint64("xid", uint64(event.Xid)),
		slog.Int("size", len(event.Data)),
	}
	if event.Source != "" {
		attrs = append(attrs, slog.String("source", event.Source))
	}
	if event.Error != nil {
		attrs = append(attrs,
			slog.String("error", event.Error.Name),
			slog.String("error_msg", event.Error.Message),
		)
	}
	a.log.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

// MultiLogger hands every event to all of its loggers.
type MultiLogger struct {
	loggers []Logger
}

func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
