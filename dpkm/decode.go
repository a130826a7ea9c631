package dpkm

import (
	"fmt"

	"ofext/ofperr"
	"ofext/ofpmsg"
)

// Decoders take a message already classified by [ofpmsg.Classify]. Each one
// checks the discriminant first and returns the matching decode mismatch
// error if it was called for a different message.

func DecodeSetKey(m ofpmsg.Message) (*SetKey, error) {
	if m.Raw != ofpmsg.RawDpkmSetKey {
		return nil, ofperr.DecodeSetKey
	}
	var sk SetKey
	if _, err := sk.Unmarshal(m.Payload); err != nil {
		return nil, err
	}
	return &sk, nil
}

func DecodeDeleteKey(m ofpmsg.Message) (*DeleteKey, error) {
	if m.Raw != ofpmsg.RawDpkmDeleteKey {
		return nil, ofperr.DecodeDeleteKey
	}
	var dk DeleteKey
	if _, err := dk.Unmarshal(m.Payload); err != nil {
		return nil, err
	}
	return &dk, nil
}

// DecodeAddPeer decodes an add peer message. If a field is missing the
// error names the first missing one of key, local IP and WireGuard IP.
func DecodeAddPeer(m ofpmsg.Message) (*AddPeer, error) {
	p, err := decodePeer(m, ofpmsg.RawDpkmAddPeer, ofperr.DecodeAddPeer)
	if err != nil {
		return nil, err
	}
	return &AddPeer{p}, nil
}

// DecodeDeletePeer works like [DecodeAddPeer].
func DecodeDeletePeer(m ofpmsg.Message) (*DeletePeer, error) {
	p, err := decodePeer(m, ofpmsg.RawDpkmDeletePeer, ofperr.DecodeDeletePeer)
	if err != nil {
		return nil, err
	}
	return &DeletePeer{p}, nil
}

func decodePeer(m ofpmsg.Message, raw ofpmsg.Raw, mismatch *ofperr.Error) (Peer, error) {
	if m.Raw != raw {
		return Peer{}, mismatch
	}
	var p Peer
	if _, err := p.Unmarshal(m.Payload); err != nil {
		return Peer{}, err
	}
	if err := p.Validate(); err != nil {
		return Peer{}, err
	}
	return p, nil
}

// DecodeStatus decodes a status message. Experimenter and subtype are taken
// from the experimenter header.
func DecodeStatus(m ofpmsg.Message) (*Status, error) {
	if m.Raw != ofpmsg.RawDpkmStatus {
		return nil, ofperr.DecodeStatus
	}
	s := Status{
		ExpHeader: ExpHeader{
			Experimenter: m.Experimenter,
			Subtype:      m.ExpType,
		},
	}
	if _, err := s.Unmarshal(m.Payload); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeTestMessage decodes a test request or test reply, both share the
// same layout.
//
// Panics if m is any other message, callers only get here after
// classification picked one of the two.
func DecodeTestMessage(m ofpmsg.Message) (*TestRequest, error) {
	if m.Raw != ofpmsg.RawDpkmTestRequest && m.Raw != ofpmsg.RawDpkmTestReply {
		panic(fmt.Sprintf("dpkm: DecodeTestMessage called for %s", m.Raw))
	}
	var rr TestRequest
	if _, err := rr.Unmarshal(m.Payload); err != nil {
		return nil, err
	}
	return &rr, nil
}

// Decode dispatches m to the decoder matching its discriminant.
//
// Returns [ofpmsg.ErrWrongMessageType] for messages which are not part of the
// extension.
func Decode(m ofpmsg.Message) (Message, error) {
	switch m.Raw {
	case ofpmsg.RawDpkmSetKey:
		return wrap(DecodeSetKey(m))
	case ofpmsg.RawDpkmDeleteKey:
		return wrap(DecodeDeleteKey(m))
	case ofpmsg.RawDpkmAddPeer:
		return wrap(DecodeAddPeer(m))
	case ofpmsg.RawDpkmDeletePeer:
		return wrap(DecodeDeletePeer(m))
	case ofpmsg.RawDpkmStatus:
		return wrap(DecodeStatus(m))
	case ofpmsg.RawDpkmTestRequest:
		return wrap(DecodeTestMessage(m))
	case ofpmsg.RawDpkmTestReply:
		rr, err := DecodeTestMessage(m)
		if err != nil {
			return nil, err
		}
		return &TestReply{rr.ExpHeader}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ofpmsg.ErrWrongMessageType, m.Raw)
	}
}

// avoids returning typed nil pointers as non-nil interface
func wrap[T Message](v T, err error) (Message, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
