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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/avmconfig"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/term"
)

// registerBareModule builds and registers the smallest module Step can run:
// a single exported 0-arity function whose body is label(1), return. Label 0
// is left as the reserved never-targeted slot; label 1 sits right after the
// two-byte label pseudo-instruction, matching the offset-must-be-nonzero
// convention every other loaded module's label table follows.
func registerBareModule(g *Global, modName, funName string) *loader.Module {
	modAtom := g.Atoms.Insert(modName)
	funAtom := g.Atoms.Insert(funName)

	code := []byte{
		byte(loader.OpLabel), 0x10, // label(1); operand: inline KindLiteral=0, value=1
		byte(loader.OpReturn),
	}
	m := &loader.Module{
		Index: 0,
		Atom:  modAtom,
		Code:  code,
		Labels: []uint32{
			0, // label 0, unused
			2, // label 1 -> offset 2, where opReturn sits
		},
		Exports: map[loader.ExportKey]uint32{
			{FunctionAtom: funAtom, Arity: 0}: 1,
		},
	}
	g.byAtom[m.Atom] = m
	g.byIndex[m.Index] = m
	return m
}

func TestRunTerminatesRootProcessNormally(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	registerBareModule(g, "bare", "go")

	moduleAtom := term.FromAtom(g.Atoms.Insert("bare"))
	functionAtom := term.FromAtom(g.Atoms.Insert("go"))
	root, ok := g.SpawnRoot(moduleAtom, functionAtom, 0)
	require.True(t, ok)

	g.Run()

	assert.False(t, g.Sched.IsAlive(root.Pid))
	require.True(t, term.IsAtom(root.ExitReason))
	assert.Equal(t, atomtable.IDNormal, term.AtomID(root.ExitReason))
}

func TestSpawnRootRejectsUnexportedFunction(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	registerBareModule(g, "bare2", "go")

	moduleAtom := term.FromAtom(g.Atoms.Insert("bare2"))
	missing := term.FromAtom(g.Atoms.Insert("missing"))
	_, ok := g.SpawnRoot(moduleAtom, missing, 0)
	assert.False(t, ok)
}
