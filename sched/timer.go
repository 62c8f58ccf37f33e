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

package sched

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// Timer is one armed wait_timeout entry: pid fires back to ready, setting
// WaitingTimeoutExpired, once Deadline passes. Deadlines are values of the caller's logical
// clock (vm.Global's Clock, advanced once per dispatched instruction), not
// of the ref-ticks counter; a uint256.Int keeps a deadline from ever
// wrapping across a long-running VM session.
type Timer struct {
	Pid      term.Term
	Deadline *uint256.Int
}

// insertTimer schedules pid's wait_timeout to fire at deadline (an absolute
// tick value; an infinite timeout never reaches here, since
// Scheduler.ArmTimeout arms no timer for it). The timer list stays sorted by
// deadline, insertion done with sort.Search: container/heap would be
// overkill for a wheel this small, so a sorted slice is the straightforward
// choice here.
func (s *Scheduler) insertTimer(pid term.Term, deadline *uint256.Int) {
	t := &Timer{Pid: pid, Deadline: deadline}
	i := sort.Search(len(s.timers), func(i int) bool {
		return s.timers[i].Deadline.Cmp(deadline) > 0
	})
	s.timers = append(s.timers, nil)
	copy(s.timers[i+1:], s.timers[i:])
	s.timers[i] = t
}

// ArmTimeout implements the wait_timeout instruction's timer half: pid is
// moved to waiting (by the caller, via Block) and a timer is armed for
// nowTicks+timeoutMs. A timeoutMs of nil means :infinity — no timer is
// armed, matching real BEAM's "no timer" behavior for an infinite receive.
func (s *Scheduler) ArmTimeout(pid term.Term, nowTicks *uint256.Int, timeoutMs *uint256.Int) {
	if timeoutMs == nil {
		return
	}
	deadline := new(uint256.Int).Add(nowTicks, timeoutMs)
	s.insertTimer(pid, deadline)
}

// cancelTimer detaches any armed timer for pid (scheduler_cancel_timeout):
// a message arrived before expiry.
func (s *Scheduler) cancelTimer(pid term.Term) {
	for i, t := range s.timers {
		if t.Pid == pid {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// ExpireUpTo fires every timer whose deadline is <= nowTicks: each such
// process has WaitingTimeoutExpired set and is moved back to ready at its
// saved ip. Returns the pids that fired, for the driver
// loop to log or inspect.
func (s *Scheduler) ExpireUpTo(nowTicks *uint256.Int) []term.Term {
	var fired []term.Term
	i := 0
	for ; i < len(s.timers); i++ {
		if s.timers[i].Deadline.Cmp(nowTicks) > 0 {
			break
		}
		pid := s.timers[i].Pid
		fired = append(fired, pid)
		if ctx, ok := s.procs[pid]; ok {
			ctx.Flags.Set(process.FlagWaitingTimeoutExpired)
		}
		delete(s.waiting, pid)
		if _, ok := s.procs[pid]; ok {
			s.ready = append(s.ready, pid)
		}
	}
	s.timers = s.timers[i:]
	return fired
}

// NextDeadline reports the earliest armed deadline, for a driver loop
// deciding how long it may block waiting for an external event when no
// process is ready.
func (s *Scheduler) NextDeadline() (*uint256.Int, bool) {
	if len(s.timers) == 0 {
		return nil, false
	}
	return s.timers[0].Deadline, true
}
