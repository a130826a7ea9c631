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

package ofpmsg

import (
	"encoding/binary"
	"fmt"
)

// Raw is the discriminant [Classify] assigns to a message. Decoders switch
// on it instead of re-parsing the header.
type Raw uint8

// Constants for the [Raw] discriminant
const (
	RawUnknown Raw = iota
	RawHello
	RawError
	RawEchoRequest
	RawEchoReply
	RawDpkmTestRequest
	RawDpkmTestReply
	RawDpkmSetKey
	RawDpkmDeleteKey
	RawDpkmAddPeer
	RawDpkmDeletePeer
	RawDpkmStatus
)

func (r Raw) String() string {
	switch r {
	case RawHello:
		return "HELLO"
	case RawError:
		return "ERROR"
	case RawEchoRequest:
		return "ECHO_REQUEST"
	case RawEchoReply:
		return "ECHO_REPLY"
	case RawDpkmTestRequest:
		return "DPKM_TEST_REQUEST"
	case RawDpkmTestReply:
		return "DPKM_TEST_REPLY"
	case RawDpkmSetKey:
		return "DPKM_SET_KEY"
	case RawDpkmDeleteKey:
		return "DPKM_DELETE_KEY"
	case RawDpkmAddPeer:
		return "DPKM_ADD_PEER"
	case RawDpkmDeletePeer:
		return "DPKM_DELETE_PEER"
	case RawDpkmStatus:
		return "DPKM_STATUS"
	default:
		return "UNKNOWN"
	}
}

// IsDpkm reports whether r belongs to the DPKM experimenter family.
func (r Raw) IsDpkm() bool {
	return r >= RawDpkmTestRequest && r <= RawDpkmStatus
}

// payload layout of a DPKM experimenter type
type dpkmRaw struct {
	raw  Raw
	size int
}

// payload sizes are exact, the structs have no variable part
var dpkmRaws = map[uint32]dpkmRaw{
	DpkmTestRequest: {RawDpkmTestRequest, 8},
	DpkmTestReply:   {RawDpkmTestReply, 8},
	DpkmSetKey:      {RawDpkmSetKey, 8},
	DpkmDeleteKey:   {RawDpkmDeleteKey, 8},
	DpkmAddPeer:     {RawDpkmAddPeer, 328},
	DpkmDeletePeer:  {RawDpkmDeletePeer, 328},
	DpkmStatus:      {RawDpkmStatus, 356},
}

// DpkmExpType returns the experimenter type for a DPKM discriminant.
func DpkmExpType(r Raw) (uint32, bool) {
	for t, d := range dpkmRaws {
		if d.raw == r {
			return t, true
		}
	}
	return 0, false
}

// Message is a classified message.
//
// Data and Payload alias the buffer passed to [Classify], callers must not
// modify it while the Message is in use.
type Message struct {
	Header Header
	Raw    Raw
	// only set for experimenter messages
	Experimenter uint32
	// only set for experimenter messages
	ExpType uint32
	// the complete message as declared by Header.Length
	Data []byte
	// the body after the (experimenter) header
	Payload []byte
}

// Classify identifies the message at the start of buf.
//
// buf may be longer than the message, only Header.Length bytes are used.
// Classify never modifies buf.
func Classify(buf []byte) (Message, error) {
	var m Message
	if _, err := m.Header.Unmarshal(buf); err != nil {
		return Message{}, err
	}
	if m.Header.Version == 0 {
		return Message{}, ErrBadVersion
	}
	if m.Header.Length < HeaderSize {
		return Message{}, fmt.Errorf("%w: length %d below header size", ErrBadLength, m.Header.Length)
	}
	if int(m.Header.Length) > len(buf) {
		return Message{}, ErrNotEnoughData
	}
	buf = buf[:m.Header.Length]

	idx := HeaderSize
	switch m.Header.Type {
	case TypeHello:
		m.Raw = RawHello
	case TypeError:
		// type and code are mandatory
		if len(buf) < HeaderSize+4 {
			return Message{}, fmt.Errorf("%w: error message of %d bytes", ErrBadLength, len(buf))
		}
		m.Raw = RawError
	case TypeEchoRequest:
		m.Raw = RawEchoRequest
	case TypeEchoReply:
		m.Raw = RawEchoReply
	case TypeExperimenter:
		if len(buf) < ExperimenterHeaderSize {
			return Message{}, fmt.Errorf("%w: experimenter message of %d bytes", ErrBadLength, len(buf))
		}
		m.Experimenter = binary.BigEndian.Uint32(buf[HeaderSize:])
		m.ExpType = binary.BigEndian.Uint32(buf[HeaderSize+4:])
		idx = ExperimenterHeaderSize

		if m.Experimenter != DpkmVendor {
			return Message{}, fmt.Errorf("%w: 0x%08x", ErrUnknownExperimenter, m.Experimenter)
		}
		d, ok := dpkmRaws[m.ExpType]
		if !ok {
			return Message{}, fmt.Errorf("%w: %d", ErrUnknownSubtype, m.ExpType)
		}
		if len(buf)-idx != d.size {
			return Message{}, fmt.Errorf("%w: %s payload of %d bytes, want %d", ErrBadLength, d.raw, len(buf)-idx, d.size)
		}
		m.Raw = d.raw
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownType, m.Header.Type)
	}

	m.Data = buf
	m.Payload = buf[idx:]
	return m, nil
}
