package dpkm

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"ofext/ofperr"
	"ofext/ofpmsg"
)

// ExpHeader is the experimenter id and subtype repeated at the start of most
// payloads.
type ExpHeader struct {
	Experimenter uint32
	Subtype      uint32
}

const ExpHeaderSize = 8

// Unmarshals the ExpHeader from the provided buffer.
//
// Returns the number of bytes read from the buffer.
func (h *ExpHeader) Unmarshal(buf []byte) (int, error) {
	idx := 0
	if len(buf) < h.CalcSize() {
		return idx, ofpmsg.ErrNotEnoughData
	}

	h.Experimenter = binary.BigEndian.Uint32(buf[idx:])
	idx += 4

	h.Subtype = binary.BigEndian.Uint32(buf[idx:])
	idx += 4

	return idx, nil
}

// Marshals the ExpHeader to the provided buffer.
func (h *ExpHeader) Marshal(buf []byte) error {
	idx := 0
	if len(buf) < h.CalcSize() {
		return ofpmsg.ErrBufSize
	}

	binary.BigEndian.PutUint32(buf[idx:], h.Experimenter)
	idx += 4

	binary.BigEndian.PutUint32(buf[idx:], h.Subtype)
	return nil
}

func (h *ExpHeader) CalcSize() int {
	return binary.Size(h)
}

// SetKey asks the switch to generate and configure its WireGuard key pair.
type SetKey struct{ ExpHeader }

// DeleteKey asks the switch to remove its WireGuard key pair.
type DeleteKey struct{ ExpHeader }

// TestRequest is used to check the extension is understood by the peer.
type TestRequest struct{ ExpHeader }

// TestReply answers a [TestRequest].
type TestReply struct{ ExpHeader }

// Peer is the payload shared by [AddPeer] and [DeletePeer].
type Peer struct {
	ExpHeader
	// public key of the peer
	Key KeyField
	// address of the peer's WireGuard interface
	LocalIP AddrField
	// address under which the peer is reachable
	WgIP AddrField
}

const PeerSize = ExpHeaderSize + KeyLen + 2*IPLen

// Unmarshals the Peer from the provided buffer. String fields are copied
// bounded, their presence is not checked.
//
// Returns the number of bytes read from the buffer.
func (p *Peer) Unmarshal(buf []byte) (int, error) {
	if len(buf) < p.CalcSize() {
		return 0, ofpmsg.ErrNotEnoughData
	}

	idx, err := p.ExpHeader.Unmarshal(buf)
	if err != nil {
		return idx, err
	}

	boundedCopy(p.Key[:], buf[idx:idx+KeyLen])
	idx += KeyLen

	boundedCopy(p.LocalIP[:], buf[idx:idx+IPLen])
	idx += IPLen

	boundedCopy(p.WgIP[:], buf[idx:idx+IPLen])
	idx += IPLen

	return idx, nil
}

// Marshals the Peer to the provided buffer.
func (p *Peer) Marshal(buf []byte) error {
	if len(buf) < p.CalcSize() {
		return ofpmsg.ErrBufSize
	}

	// buffer size checked above
	_ = p.ExpHeader.Marshal(buf)
	idx := ExpHeaderSize

	idx += copy(buf[idx:], p.Key[:])
	idx += copy(buf[idx:], p.LocalIP[:])
	copy(buf[idx:], p.WgIP[:])
	return nil
}

func (p *Peer) CalcSize() int {
	return PeerSize
}

// Validate checks that all fields are set. The fields are checked in order
// key, local IP, WireGuard IP and only the first missing one is reported.
func (p *Peer) Validate() error {
	switch {
	case p.Key.Empty():
		return ofperr.MissingKey
	case p.LocalIP.Empty():
		return ofperr.MissingLocalIP
	case p.WgIP.Empty():
		return ofperr.MissingWgIP
	}
	return nil
}

func (p *Peer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("key", p.Key),
		slog.String("local_ip", p.LocalIP.String()),
		slog.String("wg_ip", p.WgIP.String()),
	)
}

// AddPeer asks the switch to add a WireGuard peer.
type AddPeer struct{ Peer }

// DeletePeer asks the switch to remove a WireGuard peer.
type DeletePeer struct{ Peer }

// StatusFlags is a set of independent lifecycle bits of the WireGuard
// configuration of a switch.
type StatusFlags uint32

const (
	StatusConfigured StatusFlags = 1 << iota
	StatusPeerAdded
	StatusPeerRemoved
	StatusConnected
	StatusKeyRevoked
)

var statusFlagNames = []struct {
	f    StatusFlags
	name string
}{
	{StatusConfigured, "CONFIGURED"},
	{StatusPeerAdded, "PEER_ADDED"},
	{StatusPeerRemoved, "PEER_REMOVED"},
	{StatusConnected, "CONNECTED"},
	{StatusKeyRevoked, "REVOKED"},
}

func (f StatusFlags) Has(flag StatusFlags) bool {
	return f&flag == flag
}

// String lists the set flags separated by "|", "0" for no flags.
func (f StatusFlags) String() string {
	var names []string
	for _, n := range statusFlagNames {
		if f.Has(n.f) {
			names = append(names, n.name)
			f &^= n.f
		}
	}
	if f != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(f)))
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

// Status reports the WireGuard state of a switch.
//
// The status payload does not repeat the experimenter header, Experimenter
// and Subtype are taken from the message header on decode.
type Status struct {
	ExpHeader
	Flags   StatusFlags
	Key     KeyField
	LocalIP AddrField
	WgIP    AddrField
	// may be empty
	PeerIP AddrField
}

const StatusSize = 4 + KeyLen + 3*IPLen

// Unmarshals the Status payload from the provided buffer.
//
// Returns the number of bytes read from the buffer.
func (s *Status) Unmarshal(buf []byte) (int, error) {
	idx := 0
	if len(buf) < s.CalcSize() {
		return idx, ofpmsg.ErrNotEnoughData
	}

	s.Flags = StatusFlags(binary.BigEndian.Uint32(buf[idx:]))
	idx += 4

	boundedCopy(s.Key[:], buf[idx:idx+KeyLen])
	idx += KeyLen

	for _, a := range []*AddrField{&s.LocalIP, &s.WgIP, &s.PeerIP} {
		boundedCopy(a[:], buf[idx:idx+IPLen])
		idx += IPLen
	}

	return idx, nil
}

// Marshals the Status payload to the provided buffer.
func (s *Status) Marshal(buf []byte) error {
	idx := 0
	if len(buf) < s.CalcSize() {
		return ofpmsg.ErrBufSize
	}

	binary.BigEndian.PutUint32(buf[idx:], uint32(s.Flags))
	idx += 4

	idx += copy(buf[idx:], s.Key[:])
	idx += copy(buf[idx:], s.LocalIP[:])
	idx += copy(buf[idx:], s.WgIP[:])
	copy(buf[idx:], s.PeerIP[:])
	return nil
}

func (s *Status) CalcSize() int {
	return StatusSize
}

func (s *Status) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("flags", s.Flags.String()),
		slog.Any("key", s.Key),
		slog.String("local_ip", s.LocalIP.String()),
		slog.String("wg_ip", s.WgIP.String()),
		slog.String("peer_ip", s.PeerIP.String()),
	)
}
