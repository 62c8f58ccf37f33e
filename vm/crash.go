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

package vm

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

var crashDumper = spew.ConfigState{Indent: "  ", DisableMethods: true, MaxDepth: 6}

// CrashReport is the uncaught-termination diagnostic: identity, current
// registers, a raw stack word dump, and the message at the head of the
// mailbox (if any; later messages are not included) at the moment
// a process died with an exception that reached the top of its own
// call stack unhandled.
type CrashReport struct {
	Pid        term.Term
	Reason     term.Term
	X0, X1     term.Term
	StackWords []term.Term
	Mailbox    []term.Term
}

// BuildCrashReport snapshots everything a post-mortem needs out of ctx.
// Stack words are read raw (CP and y-slot values interleaved, per
// Heap.PushFrame's layout) rather than decoded frame-by-frame: a frame's
// y-slot count isn't recoverable from the heap alone, only from the
// module's call-site metadata at the originating CP.
func BuildCrashReport(ctx *process.Context, reason term.Term) *CrashReport {
	h := ctx.Heap
	words := make([]term.Term, 0, h.StackBase-h.EStack)
	for i := h.EStack; i < h.StackBase; i++ {
		words = append(words, h.Memory[i])
	}
	pending, _ := ctx.Mailbox.Peek()
	var mailbox []term.Term
	if pending != term.Invalid {
		mailbox = append(mailbox, pending)
	}
	return &CrashReport{
		Pid:        ctx.Pid,
		Reason:     reason,
		X0:         ctx.XRegs[0],
		X1:         ctx.XRegs[1],
		StackWords: words,
		Mailbox:    mailbox,
	}
}

// LogCrashReport writes the crash report through g.Log at Error level,
// dumping the term graphs with go-spew and structured key/value context
// instead of a raw fmt.Println.
func (g *Global) LogCrashReport(r *CrashReport) {
	g.Log.Error("process terminated with uncaught exception",
		"pid", crashDumper.Sdump(r.Pid),
		"reason", crashDumper.Sdump(r.Reason),
		"x0", crashDumper.Sdump(r.X0),
		"x1", crashDumper.Sdump(r.X1),
		"stack", crashDumper.Sdump(r.StackWords),
		"mailbox", crashDumper.Sdump(r.Mailbox),
	)
}
