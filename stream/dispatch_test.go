package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ofext/dpkm"
	"ofext/hello"
	"ofext/internal/capture"
	"ofext/internal/diag"
	"ofext/internal/packetcounter"
	"ofext/internal/ratelimit"
	"ofext/ofperr"
	"ofext/ofpmsg"
)

type memCapture struct {
	mu     sync.Mutex
	events []capture.Event
}

func (c *memCapture) Log(ev capture.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func mustBuf(t *testing.T) func([]byte, error) []byte {
	return func(b []byte, err error) []byte {
		t.Helper()
		require.NoError(t, err)
		return b
	}
}

func TestHandle(t *testing.T) {
	must := mustBuf(t)
	d := NewDispatcher(slogt.New(t), Options{Reporter: diag.New(slogt.New(t), nil)})

	t.Run("hello", func(t *testing.T) {
		res := d.Handle(must(hello.Encode(0x12)))
		hr, ok := res.(HelloResult)
		require.True(t, ok)
		assert.Equal(t, hello.VersionBitmap(0x12), hr.Versions)
		assert.True(t, hr.WellFormed)
		assert.Nil(t, res.Reply())
	})

	t.Run("malformed hello", func(t *testing.T) {
		buf := []byte{0x04, 0x00, 0x00, 0x10, 0, 0, 0, 0, 0x00, 0x07, 0x00, 0x08, 0, 0, 0, 0}
		hr, ok := d.Handle(buf).(HelloResult)
		require.True(t, ok)
		assert.False(t, hr.WellFormed)
		assert.Equal(t, hello.VersionBitmap(0x1e), hr.Versions)
	})

	t.Run("echo", func(t *testing.T) {
		req := ofpmsg.EncodeEchoRequest(ofpmsg.Version13, []byte("ping"))
		ofpmsg.SetXid(req, 5)
		res := d.Handle(req)
		require.IsType(t, EchoResult{}, res)
		m, err := ofpmsg.Classify(res.Reply())
		require.NoError(t, err)
		assert.Equal(t, ofpmsg.RawEchoReply, m.Raw)
		assert.Equal(t, uint32(5), m.Header.Xid)
		assert.Equal(t, []byte("ping"), m.Payload)
	})

	t.Run("add peer", func(t *testing.T) {
		res := d.Handle(must(dpkm.EncodeAddPeer(ofpmsg.Version13, 1, "key", "10.0.0.1", "10.0.0.2")))
		dr, ok := res.(DpkmResult)
		require.True(t, ok)
		ap, ok := dr.Record.(*dpkm.AddPeer)
		require.True(t, ok)
		assert.Equal(t, "10.0.0.2", ap.WgIP.String())
		assert.Nil(t, res.Reply())
	})

	t.Run("missing local ip", func(t *testing.T) {
		buf := must(dpkm.EncodeAddPeer(ofpmsg.Version13, 9, "key", "10.0.0.1", "10.0.0.2"))
		// clear the local ip
		buf[ofpmsg.ExperimenterHeaderSize+dpkm.ExpHeaderSize+dpkm.KeyLen] = 0
		res := d.Handle(buf)
		rej, ok := res.(Rejected)
		require.True(t, ok)
		assert.ErrorIs(t, rej.Err, ofperr.MissingLocalIP)

		m, err := ofpmsg.Classify(res.Reply())
		require.NoError(t, err)
		e, data, err := ofperr.DecodeReply(m)
		require.NoError(t, err)
		assert.Same(t, ofperr.MissingLocalIP, e)
		assert.Equal(t, uint32(9), m.Header.Xid)
		assert.Equal(t, buf[:ofperr.ReplyDataLen], data)
	})

	t.Run("test request", func(t *testing.T) {
		res := d.Handle(dpkm.EncodeTestRequest(ofpmsg.Version13, 77))
		require.IsType(t, DpkmResult{}, res)
		m, err := ofpmsg.Classify(res.Reply())
		require.NoError(t, err)
		assert.Equal(t, ofpmsg.RawDpkmTestReply, m.Raw)
		assert.Equal(t, uint32(77), m.Header.Xid)
	})

	t.Run("wrong payload size", func(t *testing.T) {
		buf := ofpmsg.NewExperimenter(ofpmsg.Version13, 3, dpkm.SubtypeAddPeer, 8)
		res := d.Handle(buf)
		require.IsType(t, Rejected{}, res)
		m, err := ofpmsg.Classify(res.Reply())
		require.NoError(t, err)
		e, _, err := ofperr.DecodeReply(m)
		require.NoError(t, err)
		assert.Same(t, ofperr.BadLength, e)
	})

	t.Run("unknown experimenter", func(t *testing.T) {
		buf := dpkm.EncodeSetKey(ofpmsg.Version13, 3)
		buf[8] = 0x00
		res := d.Handle(buf)
		m, err := ofpmsg.Classify(res.Reply())
		require.NoError(t, err)
		e, _, err := ofperr.DecodeReply(m)
		require.NoError(t, err)
		assert.Same(t, ofperr.BadExperimenter, e)
	})

	t.Run("peer error", func(t *testing.T) {
		req, err := ofpmsg.Classify(dpkm.EncodeSetKey(ofpmsg.Version13, 3))
		require.NoError(t, err)
		res := d.Handle(ofperr.EncodeReply(req, ofperr.DecodeSetKey))
		er, ok := res.(ErrorResult)
		require.True(t, ok)
		assert.Same(t, ofperr.DecodeSetKey, er.Err)
	})
}

func TestRun(t *testing.T) {
	must := mustBuf(t)
	var stream bytes.Buffer
	stream.Write(must(hello.Encode(0x1e)))
	stream.Write(dpkm.EncodeTestRequest(ofpmsg.Version13, 1))
	stream.Write(dpkm.EncodeSetKey(ofpmsg.Version13, 2))
	stream.Write(dpkm.EncodeSetKey(ofpmsg.Version13, 3))

	var cnt []string
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := packetcounter.NewCounterWithClock(func(_ time.Time, kind string, n uint) {
		for range n {
			cnt = append(cnt, kind)
		}
	}, time.Second, func() time.Time { return now })
	capt := &memCapture{}

	d := NewDispatcher(slogt.New(t), Options{
		Capture: capt,
		Counter: counter,
		Session: "session",
		Source:  "test",
	})

	out := make(chan Result)
	var results []Result
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(out)
		return d.Run(ctx, NewReader(&stream), out)
	})
	g.Go(func() error {
		for r := range out {
			results = append(results, r)
		}
		return nil
	})
	require.NoError(t, g.Wait())
	counter.Finalize()

	require.Len(t, results, 4)
	assert.IsType(t, HelloResult{}, results[0])
	assert.IsType(t, DpkmResult{}, results[1])

	assert.Equal(t, []string{"DPKM_SET_KEY", "DPKM_SET_KEY", "DPKM_TEST_REQUEST", "HELLO"}, cnt)

	// four incoming messages and the test reply
	require.Len(t, capt.events, 5)
	assert.Equal(t, capture.DirectionOut, capt.events[2].Direction)
	assert.Equal(t, "DPKM_TEST_REPLY", capt.events[2].Kind)
	for _, ev := range capt.events {
		assert.Equal(t, "session", ev.SessionID)
		assert.Equal(t, "test", ev.Source)
	}
}

func TestRunTruncated(t *testing.T) {
	buf := dpkm.EncodeSetKey(ofpmsg.Version13, 2)
	d := NewDispatcher(slogt.New(t), Options{})
	out := make(chan Result, 1)
	err := d.Run(context.Background(), NewReader(bytes.NewReader(buf[:10])), out)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRunCancelled(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(dpkm.EncodeSetKey(ofpmsg.Version13, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(slogt.New(t), Options{})
	// nobody receives, so the result can only be dropped by cancellation
	err := d.Run(ctx, NewReader(&stream), make(chan Result))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleMalformedHelloWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lim := ratelimit.New(1, 2, func() time.Time { return now })
	rep := diag.New(slog.New(slog.NewJSONHandler(&buf, nil)), lim)
	d := NewDispatcher(slogt.New(t), Options{Reporter: rep})

	// unknown element followed by a zero bitmap
	malformed := []byte{
		0x04, 0x00, 0x00, 0x18, 0, 0, 0, 0,
		0x00, 0x07, 0x00, 0x08, 0, 0, 0, 0,
		0x00, 0x01, 0x00, 0x08, 0, 0, 0, 0,
	}
	for range 3 {
		hr, ok := d.Handle(malformed).(HelloResult)
		require.True(t, ok)
		assert.False(t, hr.WellFormed)
	}
	now = now.Add(time.Minute + time.Second)
	d.Handle(malformed)

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var l map[string]any
		require.NoError(t, dec.Decode(&l))
		lines = append(lines, l)
	}

	// one line per hello let through, the third one was suppressed
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, "WARN", l["level"])
		assert.Equal(t, "unknown hello element type 7", l["msg"])
		assert.Contains(t, l["dump"], "04 00 00 18")
	}
	assert.NotContains(t, lines[1], "suppressed")
	assert.Equal(t, float64(1), lines[2]["suppressed"])
	assert.Equal(t, uint64(0), lim.Suppressed())
}
