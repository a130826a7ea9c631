package stream

import (
	"ofext/dpkm"
	"ofext/hello"
	"ofext/ofperr"
	"ofext/ofpmsg"
)

//go-sumtype:decl Result

// Result of handling a single message. Reply is the message to send back to
// the peer, nil if there is none.
type Result interface {
	Reply() []byte
	isResult()
}

// A hello was received.
type HelloResult struct {
	Msg        ofpmsg.Message
	Versions   hello.VersionBitmap
	WellFormed bool
}

// An echo request or reply was received.
type EchoResult struct {
	Msg   ofpmsg.Message
	reply []byte
}

// A DPKM message was decoded.
type DpkmResult struct {
	Msg    ofpmsg.Message
	Record dpkm.Message
	reply  []byte
}

// The peer reported an error.
type ErrorResult struct {
	Msg ofpmsg.Message
	Err *ofperr.Error
	// start of the message which caused the error
	Data []byte
}

// The message could not be handled.
type Rejected struct {
	// the raw message
	Data []byte
	Err  error
	// nil if the error is not reported to the peer
	reply []byte
}

func (HelloResult) Reply() []byte { return nil }
func (r EchoResult) Reply() []byte { return r.reply }
func (r DpkmResult) Reply() []byte { return r.reply }
func (ErrorResult) Reply() []byte  { return nil }
func (r Rejected) Reply() []byte   { return r.reply }

func (HelloResult) isResult() {}
func (EchoResult) isResult()  {}
func (DpkmResult) isResult()  {}
func (ErrorResult) isResult() {}
func (Rejected) isResult()    {}
