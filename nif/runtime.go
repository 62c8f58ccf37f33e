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

package nif

import (
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// Runtime is the process-control surface the spawn/link/monitor/send NIFs
// need from the VM's global context. Kept as an interface, the same
// inversion avm/loader's NativeResolver uses, so avm/nif never imports
// avm/vm; avm/vm.Global implements it and binds itself via BindRuntime
// once both exist.
type Runtime interface {
	// Spawn starts a new process running module:function(args), optionally
	// linking or monitoring it to ctx. Returns the new pid and, if monitor
	// was requested, the fresh monitor ref's tick value.
	Spawn(ctx *process.Context, module, function term.Term, args []term.Term, link, monitor bool) (pid term.Term, refTicks uint64, ok bool)

	Link(from, to term.Term) bool
	Unlink(from, to term.Term)
	Monitor(from, to term.Term) (refTicks uint64, ok bool)
	Demonitor(refTicks uint64)

	Send(from *process.Context, to, msg term.Term)
	IsAlive(pid term.Term) bool
	Exit(ctx *process.Context, target, reason term.Term)
}
