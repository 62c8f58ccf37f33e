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
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// Run drives every spawned process to completion: round-robin over the
// ready queue, each process getting up to Sched.Quantum reductions before
// preemption, falling back to fast-forwarding the logical clock past the
// nearest armed wait_timeout when the ready queue runs dry but processes
// are still waiting. Returns once both the ready queue and the timer wheel
// are empty (every process has terminated or is blocked forever).
func (g *Global) Run() {
	for {
		ctx, ok := g.Sched.NextReady()
		if !ok {
			if !g.advancePastNextTimer() {
				return
			}
			continue
		}
		g.runQuantum(ctx)
	}
}

// runQuantum executes ctx for up to Sched.Quantum reductions, or until it
// yields (blocks in a receive) or terminates.
func (g *Global) runQuantum(ctx *process.Context) {
	for i := 0; i < g.Sched.Quantum; i++ {
		g.Tick()
		result := g.Step(ctx)
		switch result.Kind {
		case StepContinue:
			continue
		case StepYield:
			return
		case StepTerminated:
			g.terminate(ctx, result.Reason)
			return
		}
	}
	g.Sched.ReschedulePrevious(ctx.Pid)
}

// advancePastNextTimer fast-forwards the logical clock to the earliest
// armed wait_timeout deadline and expires it, for when every process is
// blocked and none is ready to run a reduction that would otherwise
// advance the clock naturally. Reports whether there was a timer to expire.
func (g *Global) advancePastNextTimer() bool {
	deadline, ok := g.Sched.NextDeadline()
	if !ok {
		return false
	}
	if deadline.IsUint64() && deadline.Uint64() > g.clockTicks {
		g.clockTicks = deadline.Uint64()
	}
	g.Sched.ExpireUpTo(g.Clock())
	return true
}

// terminate finalizes a process that ran StepTerminated: logs a crash
// report for anything but a normal exit, then removes it from the
// scheduler, propagating exit signals to its monitors and links.
func (g *Global) terminate(ctx *process.Context, reason term.Term) {
	ctx.ExitReason = reason
	if !(term.IsAtom(reason) && term.AtomID(reason) == atomtable.IDNormal) {
		g.LogCrashReport(BuildCrashReport(ctx, reason))
	}
	g.Sched.Terminate(ctx.Pid, reason)
}
