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

// Package atomtable implements the process-wide interned atom table: a
// bidirectional name <-> id mapping with stable, monotonically assigned ids.
package atomtable

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Reserved atom ids assigned at table construction, in the exact order
// the process-visible atoms that must exist are listed below.
const (
	IDNil = uint32(iota) // the empty list / [] atom
	IDOk
	IDError
	IDTrue
	IDFalse
	IDThrow
	IDExit
	IDUndefined
	IDNormal
	IDBadarg
	IDBadmatch
	IDCaseClause
	IDIfClause
	IDTryClause
	IDFunctionClause
	IDBadfun
	IDBadarity
	IDUndef
	IDNocatch
	IDTimeoutValue
	IDInfinity
	IDEXIT
	IDDOWN
	IDProcess
	IDOutOfMemory
	IDUnsupported
	IDOverflow
	IDSystemLimit
	IDAll
	IDStart
	numReserved
)

var reservedNames = [numReserved]string{
	IDNil:            "",
	IDOk:             "ok",
	IDError:          "error",
	IDTrue:           "true",
	IDFalse:          "false",
	IDThrow:          "throw",
	IDExit:           "exit",
	IDUndefined:      "undefined",
	IDNormal:         "normal",
	IDBadarg:         "badarg",
	IDBadmatch:       "badmatch",
	IDCaseClause:     "case_clause",
	IDIfClause:       "if_clause",
	IDTryClause:      "try_clause",
	IDFunctionClause: "function_clause",
	IDBadfun:         "badfun",
	IDBadarity:       "badarity",
	IDUndef:          "undef",
	IDNocatch:        "nocatch",
	IDTimeoutValue:   "timeout_value",
	IDInfinity:       "infinity",
	IDEXIT:           "EXIT",
	IDDOWN:           "DOWN",
	IDProcess:        "process",
	IDOutOfMemory:    "out_of_memory",
	IDUnsupported:    "unsupported",
	IDOverflow:       "overflow",
	IDSystemLimit:    "system_limit",
	IDAll:            "all",
	IDStart:          "start",
}

// Table is the global, process-wide interned atom table.
type Table struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]uint32
	cache *lru.Cache // short-atom lookup accelerator only; not authoritative
}

// New constructs a table pre-seeded with every process-visible atom
// required to exist.
func New() *Table {
	t := &Table{
		names: make([]string, numReserved),
		ids:   make(map[string]uint32, numReserved*2),
	}
	t.cache, _ = lru.New(4096)
	for id, name := range reservedNames {
		t.names[id] = name
		t.ids[name] = uint32(id)
	}
	return t
}

// Insert interns name, returning its stable id. Re-inserting the same name
// always returns the same id.
func (t *Table) Insert(name string) uint32 {
	t.mu.RLock()
	if id, ok := t.ids[name]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	if t.cache != nil {
		t.cache.Add(name, id)
	}
	return id
}

// Lookup returns the id of an already-interned name, and whether it exists.
func (t *Table) Lookup(name string) (uint32, bool) {
	if t.cache != nil {
		if v, ok := t.cache.Get(name); ok {
			return v.(uint32), true
		}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[name]
	return id, ok
}

// Name returns the interned name for id.
func (t *Table) Name(id uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[id]
}

// Len returns the number of interned atoms.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
