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

// Package dpkm implements the messages of the data plane key management
// (DPKM) experimenter extension. The extension distributes WireGuard key
// material and peer addresses between switches and their controller.
//
// All DPKM payloads are fixed size. Except for the status message every
// payload repeats the experimenter id and subtype of the experimenter header:
//
//	SetKey, DeleteKey, TestRequest, TestReply
//	+------------------+------------------+
//	| experimenter u32 |   subtype u32    |                     8 bytes
//	+------------------+------------------+
//
//	AddPeer, DeletePeer
//	+--------------+---------+---------+----------+-----------+
//	| exp, subtype | key 256 | local 32| wg ip 32 |             328 bytes
//	+--------------+---------+---------+----------+-----------+
//
//	Status
//	+-----------+---------+----------+----------+------------+
//	| flags u32 | key 256 | local 32 | wg ip 32 | peer ip 32 |   356 bytes
//	+-----------+---------+----------+----------+------------+
//
// String fields are NUL terminated but may fill the whole array on the wire.
package dpkm

import (
	"ofext/ofpmsg"
)

// Vendor is the experimenter id of the extension.
const Vendor = ofpmsg.DpkmVendor

// Subtypes as carried in the experimenter type.
const (
	SubtypeTestRequest = ofpmsg.DpkmTestRequest
	SubtypeTestReply   = ofpmsg.DpkmTestReply
	SubtypeSetKey      = ofpmsg.DpkmSetKey
	SubtypeDeleteKey   = ofpmsg.DpkmDeleteKey
	SubtypeAddPeer     = ofpmsg.DpkmAddPeer
	SubtypeDeletePeer  = ofpmsg.DpkmDeletePeer
	SubtypeStatus      = ofpmsg.DpkmStatus
)

//go-sumtype:decl Message

// Message is one of *SetKey, *DeleteKey, *AddPeer, *DeletePeer, *Status,
// *TestRequest or *TestReply.
type Message interface {
	// Raw returns the discriminant matching the concrete type.
	Raw() ofpmsg.Raw
	// CalcSize returns the payload size on the wire.
	CalcSize() int
	// Marshal writes the payload to buf.
	Marshal(buf []byte) error
	isMessage()
}

func (*SetKey) Raw() ofpmsg.Raw      { return ofpmsg.RawDpkmSetKey }
func (*DeleteKey) Raw() ofpmsg.Raw   { return ofpmsg.RawDpkmDeleteKey }
func (*AddPeer) Raw() ofpmsg.Raw     { return ofpmsg.RawDpkmAddPeer }
func (*DeletePeer) Raw() ofpmsg.Raw  { return ofpmsg.RawDpkmDeletePeer }
func (*Status) Raw() ofpmsg.Raw      { return ofpmsg.RawDpkmStatus }
func (*TestRequest) Raw() ofpmsg.Raw { return ofpmsg.RawDpkmTestRequest }
func (*TestReply) Raw() ofpmsg.Raw   { return ofpmsg.RawDpkmTestReply }

func (*SetKey) isMessage()      {}
func (*DeleteKey) isMessage()   {}
func (*AddPeer) isMessage()     {}
func (*DeletePeer) isMessage()  {}
func (*Status) isMessage()      {}
func (*TestRequest) isMessage() {}
func (*TestReply) isMessage()   {}
