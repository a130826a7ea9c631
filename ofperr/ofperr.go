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

// Package ofperr defines the errors the codecs report and how they travel
// back to a peer as an OpenFlow error message.
//
// Every protocol error is one of the predefined [*Error] values, so callers
// can compare with errors.Is against a single value (like [MissingKey]) or
// against a whole category (like [ErrMissingField]).
package ofperr

import (
	"errors"
	"fmt"
)

// Categories of protocol errors. Use these as errors.Is target.
var (
	ErrWellFormedness = errors.New("hello not well-formed")
	ErrDecodeMismatch = errors.New("decoder invoked on wrong message")
	ErrMissingField   = errors.New("missing required field")
	ErrBadRequest     = errors.New("bad request")
)

// Errors returned by [DecodeReply].
var (
	ErrNotAnError  = errors.New("message is not an error message")
	ErrUnknownCode = errors.New("unknown error type/code")
)

// Kind of protocol error
type Kind uint8

const (
	KindBadRequest Kind = iota
	KindHelloMalformed
	KindDecodeMismatch
	KindMissingField
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindHelloMalformed:
		return "HELLO_MALFORMED"
	case KindDecodeMismatch:
		return "DECODE_MISMATCH"
	case KindMissingField:
		return "MISSING_FIELD"
	default:
		return "UNKNOWN"
	}
}

// Error types as carried in the type field of an error message.
const (
	TypeHelloFailed  uint16 = 0
	TypeBadRequest   uint16 = 1
	TypeExperimenter uint16 = 0xffff
)

// Error is a protocol error.
//
// For Type [TypeExperimenter] Code is the experimenter specific code of the
// DPKM extension.
type Error struct {
	Kind Kind
	Type uint16
	Code uint16
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// Is matches e against its category.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrWellFormedness:
		return e.Kind == KindHelloMalformed
	case ErrDecodeMismatch:
		return e.Kind == KindDecodeMismatch
	case ErrMissingField:
		return e.Kind == KindMissingField
	case ErrBadRequest:
		return e.Kind == KindBadRequest
	}
	return false
}

// IsExperimenter reports whether e is sent in the experimenter error form.
func (e *Error) IsExperimenter() bool {
	return e.Type == TypeExperimenter
}

var (
	HelloMalformed  = &Error{KindHelloMalformed, TypeHelloFailed, 0, "OFPHFC_INCOMPATIBLE", "hello could not be fully parsed"}
	BadVersion      = &Error{KindBadRequest, TypeBadRequest, 0, "OFPBRC_BAD_VERSION", "version not supported"}
	BadType         = &Error{KindBadRequest, TypeBadRequest, 1, "OFPBRC_BAD_TYPE", "message type not supported"}
	BadExperimenter = &Error{KindBadRequest, TypeBadRequest, 3, "OFPBRC_BAD_EXPERIMENTER", "experimenter id not supported"}
	BadExpType      = &Error{KindBadRequest, TypeBadRequest, 4, "OFPBRC_BAD_EXP_TYPE", "experimenter type not supported"}
	BadLength       = &Error{KindBadRequest, TypeBadRequest, 6, "OFPBRC_BAD_LEN", "wrong request length for type"}

	DecodeSetKey     = &Error{KindDecodeMismatch, TypeExperimenter, 0, "DPKM_DECODE_SET_KEY", "set key decoder got a different message"}
	DecodeDeleteKey  = &Error{KindDecodeMismatch, TypeExperimenter, 1, "DPKM_DECODE_DELETE_KEY", "delete key decoder got a different message"}
	DecodeAddPeer    = &Error{KindDecodeMismatch, TypeExperimenter, 2, "DPKM_DECODE_ADD_PEER", "add peer decoder got a different message"}
	DecodeDeletePeer = &Error{KindDecodeMismatch, TypeExperimenter, 3, "DPKM_DECODE_DELETE_PEER", "delete peer decoder got a different message"}
	DecodeStatus     = &Error{KindDecodeMismatch, TypeExperimenter, 4, "DPKM_DECODE_STATUS", "status decoder got a different message"}
	MissingKey       = &Error{KindMissingField, TypeExperimenter, 5, "DPKM_MISSING_KEY", "key field is empty"}
	MissingLocalIP   = &Error{KindMissingField, TypeExperimenter, 6, "DPKM_MISSING_IP_S", "local IPv4 field is empty"}
	MissingWgIP      = &Error{KindMissingField, TypeExperimenter, 7, "DPKM_MISSING_IP_WG", "WireGuard IPv4 field is empty"}
	// Never returned locally, the test message codec panics on a wrong
	// message. Kept so that error replies of peers can be looked up.
	DecodeTest       = &Error{KindDecodeMismatch, TypeExperimenter, 8, "DPKM_DECODE_TEST", "test decoder got a different message"}
)

// all known errors, used to map received error messages back
var all = []*Error{
	HelloMalformed,
	BadVersion,
	BadType,
	BadExperimenter,
	BadExpType,
	BadLength,
	DecodeSetKey,
	DecodeDeleteKey,
	DecodeAddPeer,
	DecodeDeletePeer,
	DecodeStatus,
	MissingKey,
	MissingLocalIP,
	MissingWgIP,
	DecodeTest,
}

// Lookup returns the predefined error with the given wire type and code.
func Lookup(typ, code uint16) (*Error, bool) {
	for _, e := range all {
		if e.Type == typ && e.Code == code {
			return e, true
		}
	}
	return nil, false
}
