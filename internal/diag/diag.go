// Package diag reports diagnostics about malformed peer input without
// letting a misbehaving peer flood the log.
package diag

import (
	"encoding/hex"
	"log/slog"

	"ofext/internal/ratelimit"
)

// Reporter writes rate limited warnings to a logger.
//
// A nil *Reporter discards everything, so codecs can be used without any
// logging set up.
type Reporter struct {
	log *slog.Logger
	lim *ratelimit.Limiter
}

// New creates a Reporter. If lim is nil a limiter with the default policy is
// used.
func New(log *slog.Logger, lim *ratelimit.Limiter) *Reporter {
	if lim == nil {
		lim = ratelimit.NewDefault()
	}
	return &Reporter{
		log: log,
		lim: lim,
	}
}

// Warn logs msg at warning level unless the rate limit is exceeded.
func (r *Reporter) Warn(msg string, args ...any) {
	if r == nil || r.log == nil {
		return
	}
	ok, suppressed := r.lim.Allow()
	if !ok {
		return
	}
	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	r.log.Warn(msg, args...)
}

// WarnDump is like Warn but attaches a hex dump of data.
func (r *Reporter) WarnDump(msg string, data []byte, args ...any) {
	if r == nil || r.log == nil {
		return
	}
	r.Warn(msg, append(args, "dump", hex.Dump(data))...)
}
