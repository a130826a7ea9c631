// Package capture records the protocol messages a tool run sees, so they can
// be inspected later. Events are stored as a stream of CBOR items.
package capture

import (
	"time"

	"github.com/google/uuid"
)

// Logger receives capture events. Implementations must be safe for
// concurrent use.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// Event is a single captured message. Integer keys keep the encoding small.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	// identifies the run (or input file) the event belongs to
	SessionID string    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
	// where the message came from, a file name or peer address
	Source string `cbor:"4,keyasint,omitempty"`
	// discriminant name like "DPKM_ADD_PEER"
	Kind string `cbor:"5,keyasint"`
	Xid  uint32 `cbor:"6,keyasint"`
	// the raw message
	Data  []byte     `cbor:"7,keyasint,omitempty"`
	Error *ErrorData `cbor:"8,keyasint,omitempty"`
}

// ErrorData is set if handling the message failed.
type ErrorData struct {
	Name    string `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// Direction of a captured message.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.New().String()
}
