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

// Package ofpmsg implements the generic parts of the OpenFlow wire format
// that the hello and dpkm codecs build on.
//
// Every message starts with the 8 byte [Header]. Experimenter messages carry
// an additional experimenter id and experimenter type right after it.
// [Classify] turns a raw buffer into a [Message] with a [Raw] discriminant and
// a length-checked payload; decoders only ever see payloads that already
// passed these checks.
//
// All multi-byte integers are big-endian.
package ofpmsg

import "errors"

// Definition of possible errors that might occur in this package.
var (
	ErrNotEnoughData       = errors.New("not enough data")
	ErrBufSize             = errors.New("provided buffer is too small")
	ErrBadLength           = errors.New("length field inconsistent with message")
	ErrBadVersion          = errors.New("invalid protocol version")
	ErrUnknownType         = errors.New("unknown message type")
	ErrUnknownExperimenter = errors.New("unknown experimenter id")
	ErrUnknownSubtype      = errors.New("unknown experimenter subtype")
	ErrWrongMessageType    = errors.New("wrong message type")
)

// Wire versions as carried in the version field of the [Header].
const (
	Version10 uint8 = 0x01
	Version11 uint8 = 0x02
	Version12 uint8 = 0x03
	Version13 uint8 = 0x04
	Version14 uint8 = 0x05
	Version15 uint8 = 0x06
)

// Type for the message type set in the [Header].
type MsgType uint8

// Constants for the [MsgType]
const (
	TypeHello        MsgType = 0
	TypeError        MsgType = 1
	TypeEchoRequest  MsgType = 2
	TypeEchoReply    MsgType = 3
	TypeExperimenter MsgType = 4
)

func (t MsgType) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeError:
		return "ERROR"
	case TypeEchoRequest:
		return "ECHO_REQUEST"
	case TypeEchoReply:
		return "ECHO_REPLY"
	case TypeExperimenter:
		return "EXPERIMENTER"
	default:
		return "UNKNOWN"
	}
}

const (
	// size of the [Header]
	HeaderSize = 8
	// size of the [Header] plus experimenter id and experimenter type
	ExperimenterHeaderSize = HeaderSize + 8
	// alignment the protocol pads variable length elements to
	Alignment = 8
)

// Vendor id of the DPKM experimenter extension.
const DpkmVendor uint32 = 0xa20a0323

// Experimenter types of the DPKM extension.
//
// Peer deletion used to be signalled through a key TLV carrying the
// delete-peer key flag. That variant is kept as legacy in the dpkm package,
// DpkmDeletePeer is the canonical assignment.
const (
	DpkmTestRequest uint32 = 0
	DpkmTestReply   uint32 = 1
	DpkmSetKey      uint32 = 2
	DpkmDeleteKey   uint32 = 3
	DpkmAddPeer     uint32 = 4
	DpkmDeletePeer  uint32 = 5
	DpkmStatus      uint32 = 6
)
