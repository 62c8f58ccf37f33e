// Copyright 2024 The probeum/avm Authors
// This file is part of the avm library.
//
// The avm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The avm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the avm library. If not, see <http://www.gnu.org/licenses/>.

// Package log is a small leveled, structured logger in the same spirit as
// go-ethereum's log15-derived package: level + message + key/value pairs,
// colorized when writing to a terminal.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Lvl int

const (
	LvlError Lvl = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var lvlNames = map[Lvl]string{
	LvlError: "ERROR",
	LvlWarn:  "WARN ",
	LvlInfo:  "INFO ",
	LvlDebug: "DEBUG",
	LvlTrace: "TRACE",
}

var lvlColor = map[Lvl]string{
	LvlError: "\x1b[31m",
	LvlWarn:  "\x1b[33m",
	LvlInfo:  "\x1b[32m",
	LvlDebug: "\x1b[36m",
	LvlTrace: "\x1b[90m",
}

const colorReset = "\x1b[0m"

var root = New(os.Stderr)

// Logger writes leveled, structured log lines to an underlying writer.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  Lvl
	ctx    []interface{}
}

// New builds a Logger writing to w, auto-detecting color support the way
// go-ethereum's logger picks colorable output only for an attached tty.
func New(w io.Writer) *Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return &Logger{out: w, color: color, level: LvlInfo}
}

// SetLevel bounds which levels are actually written.
func (l *Logger) SetLevel(lvl Lvl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// With returns a child logger that always includes the given key/value
// pairs, the way go-ethereum's log.New(ctx...) child loggers behave.
func (l *Logger) With(ctx ...interface{}) *Logger {
	return &Logger{out: l.out, color: l.color, level: l.level, ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
}

func (l *Logger) log(lvl Lvl, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.level {
		return
	}
	var b strings.Builder
	ts := time.Now().Format("15:04:05.000")
	if l.color {
		fmt.Fprintf(&b, "%s%s%s[%s] %s", lvlColor[lvl], lvlNames[lvl], colorReset, ts, msg)
	} else {
		fmt.Fprintf(&b, "%s[%s] %s", lvlNames[lvl], ts, msg)
	}
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }

// Root returns the package-level default logger, the way go-ethereum's log
// package exposes log.Root() / top-level log.Info convenience functions.
func Root() *Logger { return root }

func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }

func SetLevel(lvl Lvl) { root.SetLevel(lvl) }
