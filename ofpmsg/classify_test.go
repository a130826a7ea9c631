package ofpmsg

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	// use table driven testing: https://go.dev/wiki/TableDrivenTests
	ts := []struct {
		name    string
		buf     []byte
		raw     Raw
		payload int
	}{
		{"hello", []byte{4, 0, 0, 8, 0, 0, 0, 1}, RawHello, 0},
		{"hello with element", []byte{4, 0, 0, 16, 0, 0, 0, 1, 0, 1, 0, 8, 0, 0, 0, 0x12}, RawHello, 8},
		{"echo request", []byte{4, 2, 0, 10, 0, 0, 0, 7, 0xaa, 0xbb}, RawEchoRequest, 2},
		{"echo reply", []byte{4, 3, 0, 8, 0, 0, 0, 7}, RawEchoReply, 0},
		{"error", []byte{4, 1, 0, 12, 0, 0, 0, 7, 0, 1, 0, 6}, RawError, 4},
		{"set key", NewExperimenter(Version13, 1, DpkmSetKey, 8), RawDpkmSetKey, 8},
		{"delete key", NewExperimenter(Version13, 1, DpkmDeleteKey, 8), RawDpkmDeleteKey, 8},
		{"add peer", NewExperimenter(Version13, 1, DpkmAddPeer, 328), RawDpkmAddPeer, 328},
		{"delete peer", NewExperimenter(Version13, 1, DpkmDeletePeer, 328), RawDpkmDeletePeer, 328},
		{"status", NewExperimenter(Version13, 1, DpkmStatus, 356), RawDpkmStatus, 356},
		{"test request", NewExperimenter(Version13, 1, DpkmTestRequest, 8), RawDpkmTestRequest, 8},
		{"test reply", NewExperimenter(Version13, 1, DpkmTestReply, 8), RawDpkmTestReply, 8},
	}
	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Classify(tt.buf)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if m.Raw != tt.raw {
				t.Fatalf("Classify returned %v, expected %v", m.Raw, tt.raw)
			}
			if len(m.Payload) != tt.payload {
				t.Fatalf("payload has %d bytes, expected %d", len(m.Payload), tt.payload)
			}
			if len(m.Data) != int(m.Header.Length) {
				t.Fatalf("data has %d bytes, header says %d", len(m.Data), m.Header.Length)
			}
		})
	}
}

func TestClassifyIgnoresTrailingBytes(t *testing.T) {
	buf := []byte{4, 2, 0, 9, 0, 0, 0, 7, 0xaa, 0xbb, 0xcc}
	m, err := Classify(buf)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(m.Payload) != 1 || m.Payload[0] != 0xaa {
		t.Fatalf("payload not bounded by the header length: %v", m.Payload)
	}
}

func TestClassifyMalformed(t *testing.T) {
	wrongVendor := NewExperimenter(Version13, 1, DpkmSetKey, 8)
	wrongVendor[8] = 0

	ts := []struct {
		name string
		buf  []byte
		err  error
	}{
		{"short header", []byte{4, 0, 0}, ErrNotEnoughData},
		{"version zero", []byte{0, 0, 0, 8, 0, 0, 0, 1}, ErrBadVersion},
		{"length below header", []byte{4, 0, 0, 4, 0, 0, 0, 1}, ErrBadLength},
		{"length beyond buffer", []byte{4, 0, 0, 16, 0, 0, 0, 1}, ErrNotEnoughData},
		{"unknown type", []byte{4, 42, 0, 8, 0, 0, 0, 1}, ErrUnknownType},
		{"short error", []byte{4, 1, 0, 10, 0, 0, 0, 1, 0, 1}, ErrBadLength},
		{"short experimenter", []byte{4, 4, 0, 12, 0, 0, 0, 1, 0xa2, 0x0a, 0x03, 0x23}, ErrBadLength},
		{"unknown vendor", wrongVendor, ErrUnknownExperimenter},
		{"unknown subtype", NewExperimenter(Version13, 1, 99, 8), ErrUnknownSubtype},
		{"add peer too short", NewExperimenter(Version13, 1, DpkmAddPeer, 320), ErrBadLength},
		{"set key too long", NewExperimenter(Version13, 1, DpkmSetKey, 16), ErrBadLength},
	}
	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.buf)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestDpkmExpType(t *testing.T) {
	for expType, d := range dpkmRaws {
		got, ok := DpkmExpType(d.raw)
		if !ok || got != expType {
			t.Fatalf("DpkmExpType(%v) = %d,%v expected %d", d.raw, got, ok, expType)
		}
		if !d.raw.IsDpkm() {
			t.Fatalf("%v not marked as DPKM", d.raw)
		}
	}
	if _, ok := DpkmExpType(RawHello); ok {
		t.Fatalf("DpkmExpType accepted a non DPKM discriminant")
	}
}
