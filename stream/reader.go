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

// Package stream reads messages from a byte stream and hands them to the
// codecs.
package stream

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"ofext/ofpmsg"
)

// ErrBrokenFraming is returned if a header announces a length shorter than
// the header itself. The stream cannot be resynchronized after that.
var ErrBrokenFraming = errors.New("message length below header size")

// Reader splits a stream into messages using the length field of the header.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next complete message. The returned slice is owned by the
// caller.
//
// Returns io.EOF if the stream ended between two messages and
// io.ErrUnexpectedEOF if it ended within one.
func (r *Reader) Next() ([]byte, error) {
	var hdr ofpmsg.Header
	buf := make([]byte, hdr.CalcSize())

	// read the message header
	nRead, err := io.ReadFull(r.r, buf)
	if err != nil {
		return nil, err
	}
	// the complete buffer is populated at this point

	if _, err = hdr.Unmarshal(buf); err != nil {
		return nil, err
	}
	if int(hdr.Length) < nRead {
		return nil, fmt.Errorf("%w: %d", ErrBrokenFraming, hdr.Length)
	}

	// allocate space for the message body
	buf = slices.Grow(buf, int(hdr.Length)-nRead)
	buf = buf[0:int(hdr.Length)]

	// read the message body
	if _, err = io.ReadFull(r.r, buf[nRead:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
