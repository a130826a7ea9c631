// Package args is used for specifying the arguments (internally) used by the application.
package args

import (
	"log/slog"
	"time"

	"ofext/internal/ratelimit"
	"ofext/ofpmsg"
)

// Represents the arguments used actually/internally by the application

// You can use [NewFromDefaults] to obtain this struct with default values set
type Args struct {
	// minimum level of log messages printed
	LogLevel slog.Level
	// Warnings about malformed input allowed per minute
	RatePerMinute float64
	// Warnings about malformed input allowed in a burst
	RateBurst int
	// Path of the CBOR capture file, empty disables capturing
	Capture string
	// Path of the CSV file receiving message counts, empty disables them
	Stats string
	// Bucket size of the message counts
	StatsGranularity time.Duration
	// Path receiving the message counts as JSON lines, empty disables them
	TestLog string
	// Wire version used for messages created by the tool
	Version uint8
}

// Returns a new [Args] struct with sane default values
func NewFromDefaults() Args {
	return Args{
		LogLevel:         slog.LevelInfo,
		RatePerMinute:    ratelimit.DefaultPerMinute,
		RateBurst:        ratelimit.DefaultBurst,
		Capture:          "",
		Stats:            "",
		StatsGranularity: time.Second,
		TestLog:          "",
		Version:          ofpmsg.Version13,
	}
}
