package ofext_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ofext/common"
	"ofext/dpkm"
	"ofext/internal/args"
	"ofext/internal/capture"
	testlog "ofext/internal/testLog"
	ofext "ofext/main"
	"ofext/ofpmsg"

	"github.com/jszwec/csvutil"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
	"gopkg.in/ini.v1"
)

func TestMerge(t *testing.T) {
	cfg, err := ini.Load([]byte(`
[ofext]
log_level = debug
rate_per_minute = 10
rate_burst = 2
capture = events.cbor
version = 1
`))
	require.NoError(t, err)

	var iargs ofext.UserArgs
	require.NoError(t, cfg.Section("ofext").MapTo(&iargs))

	a, err := iargs.Merge(args.NewFromDefaults())
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, a.LogLevel)
	require.Equal(t, 10.0, a.RatePerMinute)
	require.Equal(t, 2, a.RateBurst)
	require.Equal(t, "events.cbor", a.Capture)
	require.Equal(t, ofpmsg.Version10, a.Version)
	// untouched values keep their defaults
	require.Equal(t, "", a.Stats)
	require.Equal(t, time.Second, a.StatsGranularity)

	// cli arguments are merged last
	level := "test"
	burst := 7
	cargs := ofext.UserArgs{LogLevel: &level, RateBurst: &burst}
	a, err = cargs.Merge(a)
	require.NoError(t, err)
	require.Equal(t, common.LevelTest, a.LogLevel)
	require.Equal(t, 7, a.RateBurst)
	require.Equal(t, 10.0, a.RatePerMinute)
}

func TestMergeInvalid(t *testing.T) {
	level := "loud"
	_, err := (&ofext.UserArgs{LogLevel: &level}).Merge(args.NewFromDefaults())
	require.Error(t, err)

	version := uint(256)
	_, err = (&ofext.UserArgs{Version: &version}).Merge(args.NewFromDefaults())
	require.Error(t, err)
}

func TestNoCommand(t *testing.T) {
	var out bytes.Buffer
	m := ofext.NewMainWithArgs(args.NewFromDefaults(), nil, slogt.New(t), &out)
	require.ErrorIs(t, m.Run(context.Background()), ofext.ErrNoCommand)
}

func TestHello(t *testing.T) {
	var out bytes.Buffer
	m := ofext.NewMainWithArgs(args.NewFromDefaults(), &ofext.HelloCmd{Versions: []uint{1, 4}, Xid: 3}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, "04000010000000030001000800000012\n version bitmap: 0x01, 0x04\n", out.String())

	out.Reset()
	m = ofext.NewMainWithArgs(args.NewFromDefaults(), &ofext.HelloCmd{Versions: []uint{4, 1, 2, 3}}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, "0400000800000000\n version bitmap: 0x01, 0x02, 0x03, 0x04\n", out.String())

	m = ofext.NewMainWithArgs(args.NewFromDefaults(), &ofext.HelloCmd{Versions: []uint{0}}, slogt.New(t), &out)
	require.ErrorIs(t, m.Run(context.Background()), ofext.ErrVersionRange)
}

func decodePeerOutput(t *testing.T, line string) ofpmsg.Message {
	buf, err := hex.DecodeString(strings.TrimSpace(line))
	require.NoError(t, err)
	msg, err := ofpmsg.Classify(buf)
	require.NoError(t, err)
	return msg
}

func TestPeer(t *testing.T) {
	priv, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)
	key := priv.PublicKey().String()

	var out bytes.Buffer
	cmd := &ofext.PeerCmd{Key: key, LocalIP: "192.168.0.2", WgIP: "10.0.0.2", Xid: 0x42}
	m := ofext.NewMainWithArgs(args.NewFromDefaults(), cmd, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))

	msg := decodePeerOutput(t, out.String())
	require.Equal(t, ofpmsg.RawDpkmAddPeer, msg.Raw)
	require.Equal(t, uint32(0x42), msg.Header.Xid)
	require.Equal(t, ofpmsg.Version13, msg.Header.Version)
	p, err := dpkm.DecodeAddPeer(msg)
	require.NoError(t, err)
	require.Equal(t, key, p.Key.String())
	require.Equal(t, "192.168.0.2", p.LocalIP.String())
	require.Equal(t, "10.0.0.2", p.WgIP.String())

	out.Reset()
	cmd.Delete = true
	m = ofext.NewMainWithArgs(args.NewFromDefaults(), cmd, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, ofpmsg.RawDpkmDeletePeer, decodePeerOutput(t, out.String()).Raw)
}

func TestPeerGenerateKey(t *testing.T) {
	var out bytes.Buffer
	cmd := &ofext.PeerCmd{GenerateKey: true, LocalIP: "192.168.0.2", WgIP: "10.0.0.2"}
	m := ofext.NewMainWithArgs(args.NewFromDefaults(), cmd, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	priv, err := wgtypes.ParseKey(strings.TrimPrefix(lines[0], "private key: "))
	require.NoError(t, err)

	p, err := dpkm.DecodeAddPeer(decodePeerOutput(t, lines[1]))
	require.NoError(t, err)
	require.Equal(t, priv.PublicKey().String(), p.Key.String())
}

func TestPeerInvalid(t *testing.T) {
	tests := []struct {
		name string
		cmd  ofext.PeerCmd
	}{
		{"key and generate", ofext.PeerCmd{Key: "x", GenerateKey: true, LocalIP: "a", WgIP: "b"}},
		{"bad key", ofext.PeerCmd{Key: "not base64", LocalIP: "a", WgIP: "b"}},
		{"missing key", ofext.PeerCmd{LocalIP: "a", WgIP: "b"}},
		{"missing wg ip", ofext.PeerCmd{GenerateKey: true, LocalIP: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			m := ofext.NewMainWithArgs(args.NewFromDefaults(), &tt.cmd, slogt.New(t), &out)
			require.Error(t, m.Run(context.Background()))
		})
	}
}

type csvRow struct {
	File   string    `csv:"file"`
	Bucket time.Time `csv:"bucket"`
	Kind   string    `csv:"kind"`
	Count  uint      `csv:"count"`
}

func writeStream(t *testing.T, path string, msgs ...[]byte) {
	var buf []byte
	for _, m := range msgs {
		buf = append(buf, m...)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o600))
}

func TestDecodeAndDump(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.bin")
	writeStream(t, input,
		ofpmsg.NewMessage(ofpmsg.Version13, ofpmsg.TypeHello, 1, 0),
		ofpmsg.NewMessage(ofpmsg.Version13, ofpmsg.TypeEchoRequest, 7, 0),
		dpkm.EncodeTestRequest(ofpmsg.Version13, 9),
	)

	a := args.NewFromDefaults()
	a.Capture = filepath.Join(dir, "events.cbor")
	a.Stats = filepath.Join(dir, "stats.csv")

	var statsLog bytes.Buffer
	log := slog.New(testlog.Fanout{slogt.New(t).Handler(), testlog.NewHandler(&statsLog)})

	var out bytes.Buffer
	m := ofext.NewMainWithArgs(a, &ofext.DecodeCmd{Files: []string{input}}, log, &out)
	require.NoError(t, m.Run(context.Background()))

	lines := strings.Split(out.String(), "\n")
	require.Equal(t, "HELLO xid=0x1 well-formed=true", lines[0])
	require.Equal(t, " version bitmap: 0x01, 0x02, 0x03, 0x04", lines[1])
	require.Equal(t, "ECHO_REQUEST xid=0x7 len=0", lines[2])
	require.Equal(t, "  reply: 0403000800000007", lines[3])
	require.Equal(t, "DPKM_TEST_REQUEST xid=0x9", lines[4])
	require.Equal(t, "  reply: 0404001800000009a20a032300000001a20a032300000001", lines[5])

	// message counts, possibly spread over several buckets
	data, err := os.ReadFile(a.Stats)
	require.NoError(t, err)
	var rows []csvRow
	require.NoError(t, csvutil.Unmarshal(data, &rows))
	counts := map[string]uint{}
	for _, r := range rows {
		require.Equal(t, input, r.File)
		counts[r.Kind] += r.Count
	}
	expected := map[string]uint{"HELLO": 1, "ECHO_REQUEST": 1, "DPKM_TEST_REQUEST": 1}
	require.Equal(t, expected, counts)

	events, err := testlog.ReadEvents(&statsLog)
	require.NoError(t, err)
	clear(counts)
	for _, e := range events {
		require.Equal(t, input, e.File)
		counts[e.Kind] += e.Cnt
	}
	require.Equal(t, expected, counts)

	// all messages and replies were captured
	r, err := capture.NewReader(a.Capture, capture.Filter{})
	require.NoError(t, err)
	var kinds []string
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, e.Kind)
	}
	require.NoError(t, r.Close())
	require.Equal(t, []string{"HELLO", "ECHO_REQUEST", "ECHO_REPLY", "DPKM_TEST_REQUEST", "DPKM_TEST_REPLY"}, kinds)

	out.Reset()
	m = ofext.NewMainWithArgs(a, &ofext.DumpCmd{File: a.Capture, Kind: "HELLO"}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	dump := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, dump, 2)
	require.Contains(t, dump[0], " IN HELLO xid=0x1 len=8 source="+input)
	require.Equal(t, " version bitmap: 0x01, 0x02, 0x03, 0x04", dump[1])

	out.Reset()
	m = ofext.NewMainWithArgs(a, &ofext.DumpCmd{File: a.Capture, Tail: 2}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	dump = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, dump, 2)
	require.Contains(t, dump[0], " IN DPKM_TEST_REQUEST xid=0x9 ")
	require.Contains(t, dump[1], " OUT DPKM_TEST_REPLY xid=0x9 ")
}

func TestDecodeRejected(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.bin")
	// an experimenter message of an unknown vendor
	msg := ofpmsg.NewExperimenter(ofpmsg.Version13, 5, 0, 0)
	msg[8] = 0x00
	msg[9] = 0x00
	msg[10] = 0x00
	msg[11] = 0x01
	writeStream(t, input, msg)

	a := args.NewFromDefaults()
	a.Capture = filepath.Join(dir, "events.cbor")

	var out bytes.Buffer
	m := ofext.NewMainWithArgs(a, &ofext.DecodeCmd{Files: []string{input}}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	require.True(t, strings.HasPrefix(out.String(), "rejected: "), out.String())
	require.Contains(t, out.String(), "  reply: 0401")

	out.Reset()
	m = ofext.NewMainWithArgs(a, &ofext.DumpCmd{File: a.Capture, ErrorsOnly: true}, slogt.New(t), &out)
	require.NoError(t, m.Run(context.Background()))
	require.Contains(t, out.String(), "error=")
}

func TestDecodeMissingFile(t *testing.T) {
	var out bytes.Buffer
	cmd := &ofext.DecodeCmd{Files: []string{filepath.Join(t.TempDir(), "missing.bin")}}
	m := ofext.NewMainWithArgs(args.NewFromDefaults(), cmd, slogt.New(t), &out)
	require.Error(t, m.Run(context.Background()))
}
