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

// Package loader parses a BEAM-compatible module container, decodes the
// compact instruction operand encoding, and resolves inter-module
// references. The archive/"pack" bundling format that wraps multiple
// modules together is explicitly out of scope; this
// package only ever sees a single module's bytes.
package loader

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/term"
)

var (
	ErrBadMagic    = errors.New("loader: not a BEAM module (bad magic)")
	ErrMissingChunk = errors.New("loader: missing required chunk")
	ErrMalformed    = errors.New("loader: malformed module")
)

// ImportKind discriminates how an import entry has been resolved.
type ImportKind uint8

const (
	ImportUnresolved ImportKind = iota
	ImportBIF
	ImportNIF
	ImportModuleFunc
)

// Import is one entry of a module's import table. Resolution happens in two
// passes: ResolveAtLoad tries BIF then NIF lookup against a NativeResolver;
// anything left ImportUnresolved is completed lazily by ResolveOnCall the
// first time the call instruction referencing it actually executes.
type Import struct {
	ModuleAtom   uint32
	FunctionAtom uint32
	Arity        int

	Kind    ImportKind
	BIF     interface{}
	IsGCBif bool
	NIF     interface{}

	TargetModule uint32 // resolved ImportModuleFunc target, by module atom id
	TargetLabel  uint32
}

// FunctionEntry is one row of the optional FunT chunk: a local function's
// entry label plus its closure shape (freeze-var count, uniq/index used
// only for fun-reference identity).
type FunctionEntry struct {
	FunctionAtom uint32
	Arity        uint32
	Label        uint32
	Index        uint32
	NumFree      uint32
	OldUniq      uint32
}

// ExportKey identifies an exported function by its (function atom,
// arity) pair.
type ExportKey struct {
	FunctionAtom uint32
	Arity        uint32
}

// Module is an immutable, loaded module: parsed chunks, resolved (or
// resolving) imports, and a decoded label table.
type Module struct {
	Index uint32 // this module's slot in the registry's by-index table
	Atom  uint32 // this module's own name, as a global atom id

	Code []byte

	// Labels maps a label number to its code-offset. Label 0 is never
	// targeted; label numbering starts at 1.
	Labels []uint32

	Imports   []Import
	Exports   map[ExportKey]uint32 // -> label
	Functions []FunctionEntry

	LocalAtomToGlobal []uint32 // index 0 unused, matches BEAM atom table's 1-based local indices
	atoms             *atomtable.Table

	LiteralHeap *heap.Heap
	Literals    []term.Term

	Strings []byte
}

// internLiteralAtom interns an atom name encountered inline in the literal
// table (literal atoms carry their name directly, not a local-table index).
func (m *Module) internLiteralAtom(name string) uint32 {
	return m.atoms.Insert(name)
}

// chunk is one raw {tag, payload} pair read from the container.
type chunk struct {
	tag     string
	payload []byte
}

func readChunks(r io.Reader) ([]chunk, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "FOR1" {
		return nil, ErrBadMagic
	}
	totalSize := binary.BigEndian.Uint32(data[4:8])
	if string(data[8:12]) != "BEAM" {
		return nil, ErrBadMagic
	}
	end := 12 + int(totalSize) - 4
	if end > len(data) {
		end = len(data)
	}
	var chunks []chunk
	off := 12
	for off+8 <= end {
		tag := string(data[off : off+4])
		size := binary.BigEndian.Uint32(data[off+4 : off+8])
		start := off + 8
		if start+int(size) > len(data) {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrMalformed, tag)
		}
		payload := data[start : start+int(size)]
		chunks = append(chunks, chunk{tag: tag, payload: payload})
		off = start + int(size)
		// chunks are 4-byte aligned with zero padding
		if pad := off % 4; pad != 0 {
			off += 4 - pad
		}
	}
	return chunks, nil
}

func findChunk(chunks []chunk, tag string) ([]byte, bool) {
	for _, c := range chunks {
		if c.tag == tag {
			return c.payload, true
		}
	}
	return nil, false
}

// Load parses a single module's container bytes, interning its atoms into
// atoms, building its label table, decompressing its literal table if
// present, and leaving every import as ImportUnresolved (the caller runs
// ResolveAtLoad next, and ResolveOnCall completes any import still
// unresolved on its first call — "Resolve-on-call").
func Load(r io.Reader, atoms *atomtable.Table, index uint32) (*Module, error) {
	chunks, err := readChunks(r)
	if err != nil {
		return nil, err
	}

	atU8, ok := findChunk(chunks, "AtU8")
	if !ok {
		return nil, fmt.Errorf("%w: AtU8", ErrMissingChunk)
	}
	codeChunk, ok := findChunk(chunks, "Code")
	if !ok {
		return nil, fmt.Errorf("%w: Code", ErrMissingChunk)
	}
	expT, ok := findChunk(chunks, "ExpT")
	if !ok {
		return nil, fmt.Errorf("%w: ExpT", ErrMissingChunk)
	}
	impT, ok := findChunk(chunks, "ImpT")
	if !ok {
		return nil, fmt.Errorf("%w: ImpT", ErrMissingChunk)
	}
	strT, _ := findChunk(chunks, "StrT")

	localToGlobal, err := parseAtoms(atU8, atoms)
	if err != nil {
		return nil, err
	}

	m := &Module{
		Index:             index,
		Atom:              localToGlobal[1],
		LocalAtomToGlobal: localToGlobal,
		atoms:             atoms,
		Strings:           strT,
		LiteralHeap:       heap.New(4096),
	}

	code, err := parseCode(codeChunk)
	if err != nil {
		return nil, err
	}
	m.Code = code

	if err := parseImports(impT, localToGlobal, m); err != nil {
		return nil, err
	}
	if err := parseExports(expT, localToGlobal, m); err != nil {
		return nil, err
	}

	if lit, ok := findChunk(chunks, "LitT"); ok {
		if err := parseLiteralsCompressed(lit, m); err != nil {
			return nil, err
		}
	} else if lit, ok := findChunk(chunks, "LitU"); ok {
		if err := parseLiteralsRaw(lit, m); err != nil {
			return nil, err
		}
	}

	if funT, ok := findChunk(chunks, "FunT"); ok {
		m.Functions = parseFunctions(funT)
	}

	if err := buildLabelTable(m); err != nil {
		return nil, err
	}

	return m, nil
}

// parseAtoms reads the length-prefixed UTF-8 atom names of an AtU8 chunk
// (4-byte count, then for each atom: 1-byte length + bytes) and interns
// them, returning a local-index -> global-id slice (index 0 unused, atoms
// numbered from 1, matching BEAM's own atom-table numbering).
func parseAtoms(data []byte, atoms *atomtable.Table) ([]uint32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated AtU8 chunk", ErrMalformed)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	out := make([]uint32, count+1)
	off := 4
	for i := uint32(1); i <= count; i++ {
		if off >= len(data) {
			return nil, fmt.Errorf("%w: truncated atom table", ErrMalformed)
		}
		l := int(data[off])
		off++
		if off+l > len(data) {
			return nil, fmt.Errorf("%w: truncated atom name", ErrMalformed)
		}
		name := string(data[off : off+l])
		off += l
		out[i] = atoms.Insert(name)
	}
	return out, nil
}

func parseCode(data []byte) ([]byte, error) {
	// The Code chunk itself begins with a small sub-header (info-word
	// count, instruction-set version, opcode max, label count, function
	// count) before the raw instruction stream; we only need the stream.
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: truncated Code chunk", ErrMalformed)
	}
	subHeaderLen := binary.BigEndian.Uint32(data[0:4])
	start := 4 + int(subHeaderLen)
	if start > len(data) {
		return nil, fmt.Errorf("%w: bad Code sub-header length", ErrMalformed)
	}
	return data[start:], nil
}

func parseImports(data []byte, localToGlobal []uint32, m *Module) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: truncated ImpT chunk", ErrMalformed)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	m.Imports = make([]Import, count)
	for i := uint32(0); i < count; i++ {
		if off+12 > len(data) {
			return fmt.Errorf("%w: truncated import entry", ErrMalformed)
		}
		modIdx := binary.BigEndian.Uint32(data[off : off+4])
		funIdx := binary.BigEndian.Uint32(data[off+4 : off+8])
		arity := binary.BigEndian.Uint32(data[off+8 : off+12])
		off += 12
		m.Imports[i] = Import{
			ModuleAtom:   localToGlobal[modIdx],
			FunctionAtom: localToGlobal[funIdx],
			Arity:        int(arity),
			Kind:         ImportUnresolved,
		}
	}
	return nil
}

func parseExports(data []byte, localToGlobal []uint32, m *Module) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: truncated ExpT chunk", ErrMalformed)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	m.Exports = make(map[ExportKey]uint32, count)
	for i := uint32(0); i < count; i++ {
		if off+12 > len(data) {
			return fmt.Errorf("%w: truncated export entry", ErrMalformed)
		}
		funIdx := binary.BigEndian.Uint32(data[off : off+4])
		arity := binary.BigEndian.Uint32(data[off+4 : off+8])
		label := binary.BigEndian.Uint32(data[off+8 : off+12])
		off += 12
		m.Exports[ExportKey{FunctionAtom: localToGlobal[funIdx], Arity: arity}] = label
	}
	return nil
}

func parseFunctions(data []byte) []FunctionEntry {
	var out []FunctionEntry
	off := 0
	for off+24 <= len(data) {
		out = append(out, FunctionEntry{
			FunctionAtom: binary.BigEndian.Uint32(data[off : off+4]),
			Arity:        binary.BigEndian.Uint32(data[off+4 : off+8]),
			Label:        binary.BigEndian.Uint32(data[off+8 : off+12]),
			Index:        binary.BigEndian.Uint32(data[off+12 : off+16]),
			NumFree:      binary.BigEndian.Uint32(data[off+16 : off+20]),
			OldUniq:      binary.BigEndian.Uint32(data[off+20 : off+24]),
		})
		off += 24
	}
	return out
}

func parseLiteralsCompressed(data []byte, m *Module) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: truncated LitT chunk", ErrMalformed)
	}
	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return fmt.Errorf("loader: zlib literal table: %w", err)
	}
	defer zr.Close()
	raw, err := ioutil.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("loader: zlib literal table: %w", err)
	}
	return parseLiteralsRaw(raw, m)
}

// parseLiteralsRaw decodes a size-prefixed sequence of external-term blobs
// (4-byte count, then for each literal: 4-byte size + payload) into the
// module's literal heap. Each literal's encoding is the small subset of the
// external term format this VM's literal pool actually needs: small ints,
// floats, atoms (as inline length-prefixed names), nil, binaries, and
// nested lists/tuples of the same.
func parseLiteralsRaw(data []byte, m *Module) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: truncated literal table", ErrMalformed)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	m.Literals = make([]term.Term, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("%w: truncated literal entry", ErrMalformed)
		}
		size := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		if off+int(size) > len(data) {
			return fmt.Errorf("%w: truncated literal payload", ErrMalformed)
		}
		payload := data[off : off+int(size)]
		off += int(size)
		t, err := decodeExternalTerm(payload, m)
		if err != nil {
			return err
		}
		m.Literals[i] = t
	}
	return nil
}

func buildLabelTable(m *Module) error {
	maxLabel := uint32(0)
	i := 0
	for i < len(m.Code) {
		instr, err := DecodeInstruction(m.Code, i)
		if err != nil {
			return err
		}
		if instr.Op == opLabel && uint32(instr.Operands[0].Value) > maxLabel {
			maxLabel = uint32(instr.Operands[0].Value)
		}
		i += instr.Len
	}
	m.Labels = make([]uint32, maxLabel+1)
	i = 0
	for i < len(m.Code) {
		instr, err := DecodeInstruction(m.Code, i)
		if err != nil {
			return err
		}
		i += instr.Len
		if instr.Op == opLabel {
			m.Labels[uint32(instr.Operands[0].Value)] = uint32(i)
		}
	}
	return nil
}

// Resolved reports whether import i has already been resolved to a callable
// target.
func (m *Module) Resolved(i int) bool {
	return m.Imports[i].Kind != ImportUnresolved
}

// Literal returns literal table entry idx.
func (m *Module) Literal(idx uint32) term.Term {
	return m.Literals[idx]
}

// GlobalAtom maps a local atom-table index to its global atom id.
func (m *Module) GlobalAtom(localIdx uint32) uint32 {
	return m.LocalAtomToGlobal[localIdx]
}

// Env builds the MaterializeEnv this module's operands resolve against.
func (m *Module) Env() MaterializeEnv {
	return MaterializeEnv{LocalAtomToGlobal: m.GlobalAtom, Literal: m.Literal}
}

// LabelOffset returns the code offset label L begins at.
func (m *Module) LabelOffset(label uint32) (uint32, bool) {
	if int(label) >= len(m.Labels) {
		return 0, false
	}
	off := m.Labels[label]
	return off, off != 0 || label == 0
}
