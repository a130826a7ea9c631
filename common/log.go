// Package common holds definitions shared by the tool and its tests.
package common

import (
	"log/slog"
	"strings"
)

const (
	// custom log level used for machine readable statistics
	LevelTest = slog.Level(-8)
)

// ParseLevel parses a log level name like "debug" or "warn+2". The name
// "test" selects [LevelTest].
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "test") {
		return LevelTest, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}
