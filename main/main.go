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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ofext/common"
	"ofext/internal/args"
	testlog "ofext/internal/testLog"

	"github.com/alexflint/go-arg"
	"github.com/lmittmann/tint"
	"gopkg.in/ini.v1"
)

var ErrNoCommand = errors.New("no command given")

// Arguments read using go-arg https://github.com/alexflint/go-arg. The annotation instruct the library on
// the type of comment and optionally the help message.
type UserArgs struct {
	LogLevel      *string  `ini:"log_level" arg:"-l,--log-level" help:"Minimum level of log messages (debug, info, warn, error or test)"`
	RatePerMinute *float64 `ini:"rate_per_minute" arg:"--rate" help:"Warnings about malformed input allowed per minute"`
	RateBurst     *int     `ini:"rate_burst" arg:"--burst" help:"Warnings about malformed input allowed in a burst"`
	Capture       *string  `ini:"capture" arg:"--capture" help:"Append every message and reply to this CBOR capture file"`
	Stats         *string  `ini:"stats" arg:"--stats" help:"Write message counts per kind to this CSV file"`
	TestLog       *string  `ini:"test_log" arg:"--test-log" help:"Write message counts per kind as JSON lines to this file"`
	Version       *uint    `ini:"version" arg:"-v,--wire-version" help:"Wire version of the messages created by the tool"`
	ConfigFile    *string  `ini:"-" arg:"-c,--config_file" help:"Path to the configuration file (cli arguments always take predecence)"`

	Decode *DecodeCmd `ini:"-" arg:"subcommand:decode" help:"Decode files holding a stream of OpenFlow messages"`
	Hello  *HelloCmd  `ini:"-" arg:"subcommand:hello" help:"Create a hello announcing a set of versions"`
	Peer   *PeerCmd   `ini:"-" arg:"subcommand:peer" help:"Create a DPKM add peer or delete peer message"`
	Dump   *DumpCmd   `ini:"-" arg:"subcommand:dump" help:"Print the events of a capture file"`
}

// uses the values set in arg as defaults and overwrites the values which are
// set (!= nil) in uarg
func (uarg *UserArgs) Merge(arg args.Args) (args.Args, error) {
	if uarg.LogLevel != nil {
		l, err := common.ParseLevel(*uarg.LogLevel)
		if err != nil {
			return arg, fmt.Errorf("log level: %w", err)
		}
		arg.LogLevel = l
	}
	if uarg.RatePerMinute != nil {
		arg.RatePerMinute = *uarg.RatePerMinute
	}
	if uarg.RateBurst != nil {
		arg.RateBurst = *uarg.RateBurst
	}
	if uarg.Capture != nil {
		arg.Capture = *uarg.Capture
	}
	if uarg.Stats != nil {
		arg.Stats = *uarg.Stats
	}
	if uarg.TestLog != nil {
		arg.TestLog = *uarg.TestLog
	}
	if uarg.Version != nil {
		if *uarg.Version == 0 || *uarg.Version > 0xff {
			return arg, fmt.Errorf("wire version %d out of range", *uarg.Version)
		}
		arg.Version = uint8(*uarg.Version)
	}

	return arg, nil
}

// command returns the selected subcommand
func (uarg *UserArgs) command() (command, error) {
	switch {
	case uarg.Decode != nil:
		return uarg.Decode, nil
	case uarg.Hello != nil:
		return uarg.Hello, nil
	case uarg.Peer != nil:
		return uarg.Peer, nil
	case uarg.Dump != nil:
		return uarg.Dump, nil
	}
	return nil, ErrNoCommand
}

// initialize a [slog.Logger]
func logInit(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}))
}

type command interface {
	run(ctx context.Context, m *Main) error
}

// Main runs one subcommand of the tool.
//
// Use either [NewMainWithArgs] or [NewMain] to instanciate
type Main struct {
	log  *slog.Logger
	mlog *slog.Logger
	args args.Args
	cmd  command
	out  io.Writer
	// files to close when the command is done
	closers []io.Closer
}

// Used to instanciate [Main] with a certain set of arguments (does not attempt
// to parse arguments from anywhere). The results of the command are written
// to out.
func NewMainWithArgs(args args.Args, cmd command, log *slog.Logger, out io.Writer) *Main {
	m := &Main{
		args: args,
		cmd:  cmd,
		out:  out,
	}

	m.log = log
	m.mlog = m.log.With("module", "main")

	m.mlog.Debug("CMD ARGS",
		"log level", m.args.LogLevel,
		"rate", m.args.RatePerMinute,
		"burst", m.args.RateBurst,
		"wire version", m.args.Version,
	)
	m.mlog.Debug("CMD ARGS outputs",
		"capture", m.args.Capture,
		"stats", m.args.Stats,
		"test log", m.args.TestLog,
	)

	return m
}

// Used to instanciate [Main] without special arguments. Will start parsing the
// cli arguments and depending on the arguments continue with parsing arguments
// from an ini file.
func NewMain() *Main {
	// obtain the arguments with the default values set
	args := args.NewFromDefaults()

	// read the cli arguments
	var cargs UserArgs
	p := arg.MustParse(&cargs)

	// if set also read the ini arguments
	if cargs.ConfigFile != nil {
		cfg, err := ini.Load(*cargs.ConfigFile)
		if err != nil {
			p.Fail(err.Error())
		}
		var iargs UserArgs
		if err = cfg.Section("ofext").MapTo(&iargs); err != nil {
			p.Fail(err.Error())
		}

		// use args as defaults and overwrite those values which were set by
		// the ini config file
		if args, err = iargs.Merge(args); err != nil {
			p.Fail(err.Error())
		}
	}

	// merge in the end as cli takes predecence
	args, err := cargs.Merge(args)
	if err != nil {
		p.Fail(err.Error())
	}

	cmd, err := cargs.command()
	if err != nil {
		p.Fail(err.Error())
	}

	log, closer, err := logWithTestLog(logInit(args.LogLevel), args.TestLog)
	if err != nil {
		p.Fail(err.Error())
	}
	m := NewMainWithArgs(args, cmd, log, os.Stdout)
	if closer != nil {
		m.closers = append(m.closers, closer)
	}
	return m
}

// logWithTestLog additionally writes the statistic lines of log to path.
func logWithTestLog(log *slog.Logger, path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return log, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(testlog.Fanout{log.Handler(), testlog.NewHandler(f)}), f, nil
}

// Run the selected command until it is done or ctx is cancelled.
func (m *Main) Run(ctx context.Context) error {
	defer m.close()
	if m.cmd == nil {
		return ErrNoCommand
	}
	err := m.cmd.run(ctx, m)
	if err != nil {
		m.mlog.Error("Command failed", "err", err)
	}
	return err
}

func (m *Main) close() {
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			m.mlog.Warn("Closing output failed", "err", err)
		}
	}
	m.closers = nil
}
