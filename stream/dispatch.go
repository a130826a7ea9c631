package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ofext/dpkm"
	"ofext/hello"
	"ofext/internal/capture"
	"ofext/internal/diag"
	"ofext/internal/packetcounter"
	"ofext/ofperr"
	"ofext/ofpmsg"
)

// Dispatcher classifies messages and runs the matching codec.
//
// The zero value is not usable, use [NewDispatcher].
type Dispatcher struct {
	log     *slog.Logger
	rep     *diag.Reporter
	capture capture.Logger
	counter *packetcounter.Counter
	session string
	source  string
}

// Options of a [Dispatcher], all fields are optional.
type Options struct {
	// receives rate limited diagnostics about malformed input
	Reporter *diag.Reporter
	// receives every message and reply
	Capture capture.Logger
	// counts messages per kind
	Counter *packetcounter.Counter
	// session id used for captured events, a fresh one if empty
	Session string
	// name of the input used for captured events
	Source string
}

func NewDispatcher(log *slog.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		log:     log.With("module", "stream"),
		rep:     opts.Reporter,
		capture: opts.Capture,
		counter: opts.Counter,
		session: opts.Session,
		source:  opts.Source,
	}
	if d.capture == nil {
		d.capture = capture.NoopLogger{}
	}
	if d.session == "" {
		d.session = capture.NewSessionID()
	}
	return d
}

// Handle handles the single message in buf.
func (d *Dispatcher) Handle(buf []byte) Result {
	m, err := ofpmsg.Classify(buf)
	if err != nil {
		res := d.reject(buf, err)
		d.record(buf, "UNKNOWN", res)
		return res
	}

	var res Result
	switch m.Raw {
	case ofpmsg.RawHello:
		// findings are reported by the decoder, once per hello
		b, ok := hello.Decode(m.Header, m.Payload, d.rep)
		res = HelloResult{Msg: m, Versions: b, WellFormed: ok}

	case ofpmsg.RawEchoRequest:
		res = EchoResult{Msg: m, reply: ofpmsg.MustEncodeEchoReply(m)}

	case ofpmsg.RawEchoReply:
		res = EchoResult{Msg: m}

	case ofpmsg.RawError:
		e, data, err := ofperr.DecodeReply(m)
		if err != nil {
			res = Rejected{Data: m.Data, Err: err}
			break
		}
		res = ErrorResult{Msg: m, Err: e, Data: data}

	default:
		res = d.handleDpkm(m)
	}

	d.record(m.Data, m.Raw.String(), res)
	return res
}

func (d *Dispatcher) handleDpkm(m ofpmsg.Message) Result {
	rec, err := dpkm.Decode(m)
	if err != nil {
		r := Rejected{Data: m.Data, Err: err}
		var oe *ofperr.Error
		if errors.As(err, &oe) {
			r.reply = ofperr.EncodeReply(m, oe)
		}
		return r
	}

	res := DpkmResult{Msg: m, Record: rec}
	if rr, ok := rec.(*dpkm.TestRequest); ok {
		res.reply = dpkm.EncodeTestReply(m, rr)
	}
	return res
}

// reject handles messages the classifier refused. The peer gets an error
// reply if at least the header could be read.
func (d *Dispatcher) reject(buf []byte, err error) Rejected {
	r := Rejected{Data: buf, Err: err}

	var e *ofperr.Error
	switch {
	case errors.Is(err, ofpmsg.ErrBadVersion):
		e = ofperr.BadVersion
	case errors.Is(err, ofpmsg.ErrUnknownType):
		e = ofperr.BadType
	case errors.Is(err, ofpmsg.ErrUnknownExperimenter):
		e = ofperr.BadExperimenter
	case errors.Is(err, ofpmsg.ErrUnknownSubtype):
		e = ofperr.BadExpType
	case errors.Is(err, ofpmsg.ErrBadLength):
		e = ofperr.BadLength
	default:
		return r
	}

	var m ofpmsg.Message
	if _, herr := m.Header.Unmarshal(buf); herr != nil {
		return r
	}
	m.Data = buf[:min(len(buf), int(m.Header.Length))]
	r.reply = ofperr.EncodeReply(m, e)
	return r
}

func (d *Dispatcher) record(data []byte, kind string, res Result) {
	if d.counter != nil {
		d.counter.Add(kind, 1)
	}

	var xid uint32
	if len(data) >= ofpmsg.HeaderSize {
		var h ofpmsg.Header
		_, _ = h.Unmarshal(data)
		xid = h.Xid
	}

	ev := capture.Event{
		Timestamp: time.Now(),
		SessionID: d.session,
		Direction: capture.DirectionIn,
		Source:    d.source,
		Kind:      kind,
		Xid:       xid,
		Data:      data,
	}
	if r, ok := res.(Rejected); ok {
		ev.Error = errorData(r.Err)
	}
	d.capture.Log(ev)

	if reply := res.Reply(); reply != nil {
		out := ev
		out.Timestamp = time.Now()
		out.Direction = capture.DirectionOut
		out.Kind = replyKind(reply)
		out.Data = reply
		out.Error = nil
		d.capture.Log(out)
	}
}

func errorData(err error) *capture.ErrorData {
	var oe *ofperr.Error
	if errors.As(err, &oe) {
		return &capture.ErrorData{Name: oe.Name, Message: oe.Msg}
	}
	return &capture.ErrorData{Name: "INTERNAL", Message: err.Error()}
}

func replyKind(reply []byte) string {
	m, err := ofpmsg.Classify(reply)
	if err != nil {
		return "UNKNOWN"
	}
	return m.Raw.String()
}

// Run reads messages from r until the stream ends and sends the result of
// each one on out. A clean end of the stream is not an error.
func (d *Dispatcher) Run(ctx context.Context, r *Reader, out chan<- Result) error {
	for {
		buf, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading message from %s: %w", d.source, err)
		}

		res := d.Handle(buf)
		select {
		case out <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
