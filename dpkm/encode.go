package dpkm

import (
	"ofext/ofpmsg"
)

// Encode frames msg as experimenter message. The experimenter type is
// derived from the concrete type of msg, the payload is written as is.
func Encode(version uint8, xid uint32, msg Message) ([]byte, error) {
	expType, ok := ofpmsg.DpkmExpType(msg.Raw())
	if !ok {
		return nil, ofpmsg.ErrWrongMessageType
	}
	buf := ofpmsg.NewExperimenter(version, xid, expType, msg.CalcSize())
	if err := msg.Marshal(buf[ofpmsg.ExperimenterHeaderSize:]); err != nil {
		return nil, err
	}
	return buf, nil
}

func mustEncode(version uint8, xid uint32, msg Message) []byte {
	buf, err := Encode(version, xid, msg)
	if err != nil {
		// sizes are fixed, the buffer always fits
		panic(err)
	}
	return buf
}

func EncodeSetKey(version uint8, xid uint32) []byte {
	return mustEncode(version, xid, &SetKey{ExpHeader{Vendor, SubtypeSetKey}})
}

func EncodeDeleteKey(version uint8, xid uint32) []byte {
	return mustEncode(version, xid, &DeleteKey{ExpHeader{Vendor, SubtypeDeleteKey}})
}

func EncodeTestRequest(version uint8, xid uint32) []byte {
	return mustEncode(version, xid, &TestRequest{ExpHeader{Vendor, SubtypeTestRequest}})
}

// NewPeer creates the payload of an add or delete peer message. Values
// exceeding the field capacity are truncated.
func NewPeer(subtype uint32, key, localIP, wgIP string) Peer {
	p := Peer{ExpHeader: ExpHeader{Vendor, subtype}}
	p.Key.Set(key)
	p.LocalIP.Set(localIP)
	p.WgIP.Set(wgIP)
	return p
}

// EncodeAddPeer creates an add peer message. Like the decoder it refuses
// messages with missing fields.
func EncodeAddPeer(version uint8, xid uint32, key, localIP, wgIP string) ([]byte, error) {
	ap := AddPeer{NewPeer(SubtypeAddPeer, key, localIP, wgIP)}
	if err := ap.Validate(); err != nil {
		return nil, err
	}
	return Encode(version, xid, &ap)
}

// EncodeDeletePeer works like [EncodeAddPeer].
func EncodeDeletePeer(version uint8, xid uint32, key, localIP, wgIP string) ([]byte, error) {
	dp := DeletePeer{NewPeer(SubtypeDeletePeer, key, localIP, wgIP)}
	if err := dp.Validate(); err != nil {
		return nil, err
	}
	return Encode(version, xid, &dp)
}

// EncodeStatus creates a status message. The experimenter header of s is
// ignored, status messages always use the extension's own.
func EncodeStatus(version uint8, xid uint32, s *Status) []byte {
	return mustEncode(version, xid, s)
}

// EncodeTestReply creates the reply to the test request req which decoded
// to rr. The reply keeps the experimenter id of rr, increments its subtype
// and is addressed to the request's transaction id.
//
// Panics if req is not a test request.
func EncodeTestReply(req ofpmsg.Message, rr *TestRequest) []byte {
	if req.Raw != ofpmsg.RawDpkmTestRequest {
		panic("dpkm: EncodeTestReply called for " + req.Raw.String())
	}
	reply := TestReply{ExpHeader{
		Experimenter: rr.Experimenter,
		Subtype:      rr.Subtype + 1,
	}}
	return mustEncode(req.Header.Version, req.Header.Xid, &reply)
}
