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

package ofext

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"ofext/common"
	"ofext/dpkm"
	"ofext/hello"
	"ofext/internal/capture"
	"ofext/internal/diag"
	"ofext/internal/packetcounter"
	"ofext/internal/ratelimit"
	"ofext/internal/ringbuffer"
	"ofext/ofpmsg"
	"ofext/stream"

	"github.com/jszwec/csvutil"
	"golang.org/x/sync/errgroup"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

var (
	ErrVersionRange = errors.New("versions must be within 1 and 31")
	ErrKeyConflict  = errors.New("--key and --generate-key are mutually exclusive")
)

// DecodeCmd decodes streams of messages and prints one line per message.
type DecodeCmd struct {
	Files []string `arg:"positional,required" help:"Files holding a stream of OpenFlow messages, - reads stdin"`
}

// HelloCmd prints the hello announcing Versions.
type HelloCmd struct {
	Versions []uint `arg:"positional,required" help:"Versions to announce, e.g. 1 4"`
	Xid      uint32 `arg:"--xid" help:"Transaction id of the message"`
}

// PeerCmd prints a DPKM add peer (or delete peer) message.
type PeerCmd struct {
	Delete      bool   `arg:"--delete" help:"Create a delete peer message"`
	Key         string `arg:"--key" help:"Public WireGuard key of the peer"`
	GenerateKey bool   `arg:"--generate-key" help:"Generate a fresh key pair for the peer"`
	LocalIP     string `arg:"--local-ip" help:"Address of the peer in the switch network"`
	WgIP        string `arg:"--wg-ip" help:"Address of the peer in the WireGuard network"`
	Xid         uint32 `arg:"--xid" help:"Transaction id of the message"`
}

// DumpCmd prints the events of a capture file.
type DumpCmd struct {
	File       string `arg:"positional,required" help:"Capture file"`
	Session    string `arg:"--session" help:"Only print events of this session"`
	Kind       string `arg:"--kind" help:"Only print events of this kind, e.g. HELLO"`
	ErrorsOnly bool   `arg:"--errors-only" help:"Only print events carrying an error"`
	Tail       int    `arg:"--tail" help:"Only print the last N matching events"`
}

// statsRow is a line of the CSV statistics
type statsRow struct {
	File   string    `csv:"file"`
	Bucket time.Time `csv:"bucket"`
	Kind   string    `csv:"kind"`
	Count  uint      `csv:"count"`
}

type statsCollector struct {
	mu   sync.Mutex
	rows []statsRow
	log  *slog.Logger
}

func (s *statsCollector) counter(file string, granularity time.Duration) *packetcounter.Counter {
	log := s.log.With("File", file)
	return packetcounter.NewCounter(func(t time.Time, kind string, cnt uint) {
		log.Log(context.Background(), common.LevelTest, "messages", "Kind", kind, "Cnt", cnt, "TimeBucket", t)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows = append(s.rows, statsRow{File: file, Bucket: t, Kind: kind, Count: cnt})
	}, granularity)
}

func (s *statsCollector) writeCSV(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slices.SortStableFunc(s.rows, func(a, b statsRow) int {
		if a.File != b.File {
			if a.File < b.File {
				return -1
			}
			return 1
		}
		return a.Bucket.Compare(b.Bucket)
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := enc.Encode(s.rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (c *DecodeCmd) run(ctx context.Context, m *Main) error {
	rep := diag.New(m.log, ratelimit.New(m.args.RatePerMinute, m.args.RateBurst, time.Now))

	loggers := []capture.Logger{capture.NewSlogAdapter(m.log)}
	if m.args.Capture != "" {
		fl, err := capture.NewFileLogger(m.args.Capture)
		if err != nil {
			return err
		}
		defer fl.Close()
		loggers = append(loggers, fl)
	}
	captureLog := capture.NewMultiLogger(loggers...)
	stats := &statsCollector{log: m.log}

	outputs := make([][]byte, len(c.Files))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range c.Files {
		g.Go(func() error {
			counter := stats.counter(file, m.args.StatsGranularity)
			defer counter.Finalize()

			var out bytes.Buffer
			err := m.decodeFile(ctx, file, stream.Options{
				Reporter: rep,
				Capture:  captureLog,
				Counter:  counter,
				Source:   file,
			}, &out)
			outputs[i] = out.Bytes()
			return err
		})
	}
	err := g.Wait()

	// print what was decoded, even if one of the files failed
	for i, o := range outputs {
		if len(c.Files) > 1 {
			fmt.Fprintf(m.out, "==> %s <==\n", c.Files[i])
		}
		if _, werr := m.out.Write(o); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	if m.args.Stats != "" {
		return stats.writeCSV(m.args.Stats)
	}
	return nil
}

func (m *Main) decodeFile(ctx context.Context, name string, opts stream.Options, w io.Writer) error {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	d := stream.NewDispatcher(m.log, opts)
	results := make(chan stream.Result)
	var runErr error
	go func() {
		runErr = d.Run(ctx, stream.NewReader(r), results)
		close(results)
	}()

	n := 0
	for res := range results {
		writeResult(w, res)
		n++
	}
	m.mlog.Info("Decoded input", "file", name, "messages", n)
	return runErr
}

// writeResult prints a single line (hellos may take more) describing res
func writeResult(w io.Writer, res stream.Result) {
	switch r := res.(type) {
	case stream.HelloResult:
		fmt.Fprintf(w, "%s xid=%#x well-formed=%t%s\n", r.Msg.Raw, r.Msg.Header.Xid, r.WellFormed,
			hello.Format(r.Msg.Header, r.Msg.Payload))
	case stream.EchoResult:
		fmt.Fprintf(w, "%s xid=%#x len=%d\n", r.Msg.Raw, r.Msg.Header.Xid, len(r.Msg.Payload))
	case stream.DpkmResult:
		fmt.Fprintf(w, "%s xid=%#x%s\n", r.Msg.Raw, r.Msg.Header.Xid, describeRecord(r.Record))
	case stream.ErrorResult:
		fmt.Fprintf(w, "%s xid=%#x %s\n", r.Msg.Raw, r.Msg.Header.Xid, r.Err)
	case stream.Rejected:
		fmt.Fprintf(w, "rejected: %v\n", r.Err)
	}
	if reply := res.Reply(); reply != nil {
		fmt.Fprintf(w, "  reply: %s\n", hex.EncodeToString(reply))
	}
}

func describeRecord(rec dpkm.Message) string {
	switch r := rec.(type) {
	case *dpkm.AddPeer:
		return describePeer(&r.Peer)
	case *dpkm.DeletePeer:
		return describePeer(&r.Peer)
	case *dpkm.Status:
		return fmt.Sprintf(" flags=%s local=%s wg=%s peer=%s", r.Flags, r.LocalIP, r.WgIP, r.PeerIP)
	default:
		return ""
	}
}

// the key itself is never printed
func describePeer(p *dpkm.Peer) string {
	return fmt.Sprintf(" key_len=%d local=%s wg=%s", len(p.Key.String()), p.LocalIP, p.WgIP)
}

func (c *HelloCmd) run(ctx context.Context, m *Main) error {
	var b hello.VersionBitmap
	for _, v := range c.Versions {
		if v == 0 || v > 31 {
			return fmt.Errorf("%w: %d", ErrVersionRange, v)
		}
		b |= hello.VersionBitmap(1) << v
	}

	buf, err := hello.Encode(b)
	if err != nil {
		return err
	}
	ofpmsg.SetXid(buf, c.Xid)

	msg, err := ofpmsg.Classify(buf)
	if err != nil {
		return err
	}
	m.mlog.Debug("Created hello", "versions", b.Names())
	_, err = fmt.Fprintf(m.out, "%s%s\n", hex.EncodeToString(buf), hello.Format(msg.Header, msg.Payload))
	return err
}

func (c *PeerCmd) run(ctx context.Context, m *Main) error {
	key := c.Key
	switch {
	case c.GenerateKey && key != "":
		return ErrKeyConflict
	case c.GenerateKey:
		priv, err := wgtypes.GeneratePrivateKey()
		if err != nil {
			return err
		}
		key = priv.PublicKey().String()
		fmt.Fprintf(m.out, "private key: %s\n", priv)
	case key != "":
		var k dpkm.KeyField
		k.Set(key)
		if _, err := dpkm.ValidateWireGuardKey(k); err != nil {
			return err
		}
	}

	encode := dpkm.EncodeAddPeer
	if c.Delete {
		encode = dpkm.EncodeDeletePeer
	}
	buf, err := encode(m.args.Version, c.Xid, key, c.LocalIP, c.WgIP)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(m.out, hex.EncodeToString(buf))
	return err
}

func (c *DumpCmd) run(ctx context.Context, m *Main) error {
	r, err := capture.NewReader(c.File, capture.Filter{
		SessionID:  c.Session,
		Kind:       c.Kind,
		ErrorsOnly: c.ErrorsOnly,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	var tail *ringbuffer.Ringbuffer[capture.Event]
	if c.Tail > 0 {
		tail = ringbuffer.NewRingbuffer[capture.Event](c.Tail)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if tail != nil {
			tail.Insert(event)
			continue
		}
		writeEvent(m.out, event)
	}

	if tail != nil {
		m.mlog.Debug("Skipped events", "count", tail.Dropped())
		tail.Do(func(e capture.Event) {
			writeEvent(m.out, e)
		})
	}
	return nil
}

func writeEvent(w io.Writer, e capture.Event) {
	fmt.Fprintf(w, "%s %s %s %s xid=%#x len=%d", e.Timestamp.Format(time.RFC3339Nano), e.SessionID, e.Direction, e.Kind, e.Xid, len(e.Data))
	if e.Source != "" {
		fmt.Fprintf(w, " source=%s", e.Source)
	}
	if e.Error != nil {
		fmt.Fprintf(w, " error=%s: %s", e.Error.Name, e.Error.Message)
	}
	if msg, err := ofpmsg.Classify(e.Data); err == nil && msg.Raw == ofpmsg.RawHello {
		fmt.Fprint(w, hello.Format(msg.Header, msg.Payload))
	}
	fmt.Fprintln(w)
}
