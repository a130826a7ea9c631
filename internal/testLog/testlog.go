// Package testlog writes and reads the machine readable statistics lines
// logged at [common.LevelTest].
package testlog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"ofext/common"
)

// TestHandler only passes records of exactly one level.
type TestHandler struct {
	handler slog.Handler
	level   slog.Level
}

func NewTestHandler(handler slog.Handler, level slog.Level) *TestHandler {
	return &TestHandler{
		handler: handler,
		level:   level,
	}
}

func (h *TestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level == h.level
}

func (h *TestHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.Enabled(ctx, r.Level) {
		return h.handler.Handle(ctx, r)
	}
	return nil
}

func (h *TestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewTestHandler(h.handler.WithAttrs(attrs), h.level)
}

func (h *TestHandler) WithGroup(name string) slog.Handler {
	return NewTestHandler(h.handler.WithGroup(name), h.level)
}

// Fanout passes each record to every handler which is enabled for it.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := make(Fanout, len(f))
	for i, h := range f {
		ret[i] = h.WithAttrs(attrs)
	}
	return ret
}

func (f Fanout) WithGroup(name string) slog.Handler {
	ret := make(Fanout, len(f))
	for i, h := range f {
		ret[i] = h.WithGroup(name)
	}
	return ret
}

// NewHandler returns a handler writing only [common.LevelTest] records as
// JSON lines to w. Levels are written as plain integers.
func NewHandler(w io.Writer) slog.Handler {
	return NewTestHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: common.LevelTest,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				a.Value = slog.IntValue(int(level))
			}
			return a
		},
	}), common.LevelTest)
}

// Event is a statistics line as written by the tool.
type Event struct {
	// logging items
	Time  time.Time
	Level int
	Msg   string
	// input the messages were read from
	File string
	// message kind and how many of them were seen in the bucket
	Kind       string
	Cnt        uint
	TimeBucket time.Time
}

// ReadEvents reads all statistics lines from r, other lines are skipped.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	d := json.NewDecoder(r)
	for d.More() {
		var e Event
		if err := d.Decode(&e); err != nil {
			return events, err
		}
		if e.Level != int(common.LevelTest) {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
