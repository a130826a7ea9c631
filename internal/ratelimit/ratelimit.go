/*
 * ofext
 * Copyright (C) 2024 Fabio Gaiba and Lukas Heindl
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package ratelimit provides the token bucket used to throttle diagnostics
// caused by peer input.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// default policy: one message per minute with a burst of five
const (
	DefaultPerMinute = 1
	DefaultBurst     = 5
)

// Limiter is a token bucket which additionally counts how many events were
// dropped since the last one that was let through.
//
// A Limiter is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	lim        *rate.Limiter
	now        func() time.Time
	suppressed uint64
}

// New creates a Limiter granting perMinute events per minute with the given
// burst. If now is nil, time.Now is used.
func New(perMinute float64, burst int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		lim: rate.NewLimiter(rate.Limit(perMinute/60), burst),
		now: now,
	}
}

// NewDefault creates a Limiter with the default policy.
func NewDefault() *Limiter {
	return New(DefaultPerMinute, DefaultBurst, nil)
}

// Allow reports whether an event may happen now. If it may, the number of
// events suppressed since the last allowed one is returned and reset.
func (l *Limiter) Allow() (ok bool, suppressed uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lim.AllowN(l.now(), 1) {
		l.suppressed++
		return false, 0
	}
	suppressed = l.suppressed
	l.suppressed = 0
	return true, suppressed
}

// Suppressed returns the number of events dropped since the last allowed one.
func (l *Limiter) Suppressed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}
