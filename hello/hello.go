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

// Package hello implements the hello message used for version negotiation.
//
// A hello header announces the versions {1..header version}. Peers which
// support a set that is not such a range append a version bitmap element.
// Elements are TLVs padded to 8 bytes:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-------------------------------+-------------------------------+
//	|             type              |   length (incl. this header)  |
//	+-------------------------------+-------------------------------+
//	|                        bitmap (32 bit) ...                    |
//	+---------------------------------------------------------------+
package hello

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"ofext/internal/diag"
	"ofext/ofperr"
	"ofext/ofpmsg"
)

// Definition of possible errors that might occur in this package.
var (
	ErrEmptyBitmap = errors.New("version bitmap contains no version")
	ErrVersionZero = errors.New("version bitmap contains version 0")
)

// hello element types
const (
	ElemVersionBitmap uint16 = 1
)

// ElemHeader starts every hello element.
type ElemHeader struct {
	Type uint16
	// length including this header but excluding the padding
	Length uint16
}

const ElemHeaderSize = 4

func (e *ElemHeader) Unmarshal(buf []byte) (int, error) {
	idx := 0
	if len(buf) < ElemHeaderSize {
		return idx, ofpmsg.ErrNotEnoughData
	}

	e.Type = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	e.Length = binary.BigEndian.Uint16(buf[idx:])
	idx += 2

	return idx, nil
}

func (e *ElemHeader) Marshal(buf []byte) error {
	idx := 0
	if len(buf) < ElemHeaderSize {
		return ofpmsg.ErrBufSize
	}

	binary.BigEndian.PutUint16(buf[idx:], e.Type)
	idx += 2

	binary.BigEndian.PutUint16(buf[idx:], e.Length)
	return nil
}

// Decode returns the versions announced by a hello with header h and the
// body following it.
//
// Decoding always yields a bitmap. The bool is false if the body contained
// anything that could not be fully understood. Unknown or unreadable elements
// are skipped and scanning continues. Scanning stops early only if the element
// framing itself is broken.
//
// A hello with findings is reported once to rep, naming the first finding and
// carrying a hex dump of the whole message. rep may be nil.
func Decode(h ofpmsg.Header, body []byte, rep *diag.Reporter) (VersionBitmap, bool) {
	b, ok, finding := scan(h, body)
	if finding != "" {
		rep.WarnDump(finding, rawMessage(h, body), "versions", b.String(), "well_formed", ok)
	}
	return b, ok
}

// scan decodes without reporting. finding is empty if nothing was noticed.
func scan(h ofpmsg.Header, body []byte) (allowed VersionBitmap, ok bool, finding string) {
	allowed = FromVersion(h.Version)
	ok = true
	note := func(f string) {
		if finding == "" {
			finding = f
		}
	}

	for len(body) > 0 {
		var e ElemHeader
		if _, err := e.Unmarshal(body); err != nil {
			note("truncated hello element header")
			return allowed, false, finding
		}
		padded := int(ofpmsg.RoundUp(uint(e.Length), ofpmsg.Alignment))
		if e.Length < ElemHeaderSize || len(body) < padded {
			note(fmt.Sprintf("hello element with bad length %d", e.Length))
			return allowed, false, finding
		}
		elem := body[:e.Length]
		body = body[padded:]

		if e.Type != ElemVersionBitmap {
			note(fmt.Sprintf("unknown hello element type %d", e.Type))
			ok = false
			continue
		}
		b, good, f := decodeBitmap(elem[ElemHeaderSize:])
		if f != "" {
			note(f)
		}
		if !good {
			ok = false
			continue
		}
		allowed = b
	}

	// only reachable with header version 0 and no usable element
	if allowed == 0 {
		note("hello announces no version")
		ok = false
	}
	return allowed, ok, finding
}

// decodeBitmap reads the payload of a version bitmap element. finding may be
// set for a usable bitmap too.
func decodeBitmap(data []byte) (VersionBitmap, bool, string) {
	if len(data) == 0 || len(data)%4 != 0 {
		return 0, false, fmt.Sprintf("version bitmap of bad length %d", len(data))
	}

	// versions beyond 31 are not representable, further words are ignored
	b := VersionBitmap(binary.BigEndian.Uint32(data))

	var finding string
	if b&1 != 0 {
		finding = "peer claims to support invalid version 0x00"
		b &^= 1
	}
	if b == 0 {
		if finding == "" {
			finding = "peer does not support any version (between 0x01 and 0x1f)"
		}
		return 0, false, finding
	}
	return b, true, finding
}

// rawMessage reassembles the message from its header and body
func rawMessage(h ofpmsg.Header, body []byte) []byte {
	raw := make([]byte, ofpmsg.HeaderSize, ofpmsg.HeaderSize+len(body))
	// buffer has header size
	_ = h.Marshal(raw)
	return append(raw, body...)
}

// DecodeMessage decodes a classified hello. If the hello is not well-formed
// the returned error is [ofperr.HelloMalformed], the bitmap is valid
// regardless.
func DecodeMessage(m ofpmsg.Message, rep *diag.Reporter) (VersionBitmap, error) {
	if m.Raw != ofpmsg.RawHello {
		return 0, ofpmsg.ErrWrongMessageType
	}
	b, ok := Decode(m.Header, m.Payload, rep)
	if !ok {
		return b, ofperr.HelloMalformed
	}
	return b, nil
}

// Encode creates a hello announcing the versions in b.
//
// The header carries the highest version in b. The version bitmap element is
// only added if the header alone would announce a different set. The
// transaction id is left 0.
func Encode(b VersionBitmap) ([]byte, error) {
	if b&1 != 0 {
		return nil, ErrVersionZero
	}
	if b == 0 {
		return nil, ErrEmptyBitmap
	}

	buf := ofpmsg.NewMessage(b.Highest(), ofpmsg.TypeHello, 0, 0)
	if b.IsCanonical() {
		return buf, nil
	}

	e := ElemHeader{
		Type:   ElemVersionBitmap,
		Length: ElemHeaderSize + 4,
	}
	idx := len(buf)
	buf = append(buf, make([]byte, ofpmsg.RoundUp(uint(e.Length), ofpmsg.Alignment))...)
	// buffer was grown above
	_ = e.Marshal(buf[idx:])
	binary.BigEndian.PutUint32(buf[idx+ElemHeaderSize:], uint32(b))

	ofpmsg.UpdateLength(buf)
	return buf, nil
}

// Format renders the hello for humans. If the hello is not well-formed the
// complete message is appended as hex dump.
func Format(h ofpmsg.Header, body []byte) string {
	b, ok, _ := scan(h, body)

	var sb strings.Builder
	sb.WriteString("\n version bitmap: ")
	sb.WriteString(b.String())

	if !ok {
		sb.WriteString("\n unknown data in hello:\n")
		sb.WriteString(hex.Dump(rawMessage(h, body)))
	}
	return sb.String()
}
