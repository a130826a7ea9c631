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
// Package ringbuffer keeps the most recent values of a stream. If the
// capacity is exceeded, the oldest value is overwritten.
package ringbuffer

// Ringbuffer holds up to a fixed number of values.
//
// Use [NewRingbuffer] to create one.
type Ringbuffer[T any] struct {
	data []T
	// index the next value is written to once the buffer is full
	next int
	cap  int
	// values overwritten so far
	dropped uint64
}

// NewRingbuffer returns an empty buffer holding up to capacity values.
// Panics if capacity is not positive.
func NewRingbuffer[T any](capacity int) *Ringbuffer[T] {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &Ringbuffer[T]{
		data: make([]T, 0, capacity),
		cap:  capacity,
	}
}

// Insert a value, overwriting the oldest one if the buffer is full.
func (r *Ringbuffer[T]) Insert(v T) {
	if len(r.data) < r.cap {
		r.data = append(r.data, v)
		return
	}
	r.data[r.next] = v
	r.next = (r.next + 1) % r.cap
	r.dropped++
}

func (r *Ringbuffer[T]) Len() int {
	return len(r.data)
}

// Dropped returns how many values were overwritten.
func (r *Ringbuffer[T]) Dropped() uint64 {
	return r.dropped
}

// Do calls f on each value, oldest first.
func (r *Ringbuffer[T]) Do(f func(T)) {
	for _, v := range r.data[r.next:] {
		f(v)
	}
	for _, v := range r.data[:r.next] {
		f(v)
	}
}

// ExtractToSlice returns the values, oldest first.
func (r *Ringbuffer[T]) ExtractToSlice() []T {
	ret := make([]T, 0, len(r.data))
	r.Do(func(x T) {
		ret = append(ret, x)
	})
	return ret
}
