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

package process

import "github.com/probeum/avm/term"

// AddMonitor appends a monitor or link entry to the process's monitor/link
// list. Links carry RefTicks 0 (a link has no ref of its own).
func (c *Context) AddMonitor(peer term.Term, refTicks uint64, isLink bool) {
	c.Monitors = append(c.Monitors, MonitorEntry{PeerPid: peer, RefTicks: refTicks, IsLink: isLink})
}

// RemoveLink drops the link entry to peer (erlang:unlink/1); a no-op if no
// such link exists.
func (c *Context) RemoveLink(peer term.Term) {
	out := c.Monitors[:0]
	for _, m := range c.Monitors {
		if m.IsLink && m.PeerPid == peer {
			continue
		}
		out = append(out, m)
	}
	c.Monitors = out
}

// RemoveMonitor drops the monitor entry identified by refTicks
// (erlang:demonitor; needed to keep the
// monitor list from growing unboundedly once a monitor fires or is
// cancelled); a no-op if no such monitor exists.
func (c *Context) RemoveMonitor(refTicks uint64) {
	out := c.Monitors[:0]
	for _, m := range c.Monitors {
		if !m.IsLink && m.RefTicks == refTicks {
			continue
		}
		out = append(out, m)
	}
	c.Monitors = out
}
