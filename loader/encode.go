package loader

import "encoding/binary"

// The functions below are this implementation's own encoder, matching
// DecodeOperand/DecodeInstruction byte for byte. Nothing outside this
// package's own tests produces modules in this format (an external
// compiler is out of scope), so the encoder lives next to the decoder
// purely as test-fixture tooling.

// encodeOperand picks the narrowest form DecodeOperand understands that can
// hold value: 4-bit inline, 11-bit, or N-byte wide.
func encodeOperand(kind Kind, value int64) []byte {
	if value >= -8 && value <= 7 {
		return []byte{byte(value<<4) | byte(kind)}
	}
	if value >= 0 && value <= 0x7FF {
		b0 := byte(kind) | 0x08 | byte((value>>8)&0x07)<<5
		return []byte{b0, byte(value & 0xFF)}
	}
	return encodeOperandWide(kind, value)
}

func encodeOperandWide(kind Kind, value int64) []byte {
	var buf []byte
	v := uint64(value)
	for {
		buf = append([]byte{byte(v)}, buf...)
		v >>= 8
		if v == 0 && (len(buf) == 0 || buf[0]&0x80 == 0 || value >= 0) {
			break
		}
		if len(buf) >= 8 {
			break
		}
	}
	if len(buf) < 2 {
		buf = append([]byte{0}, buf...)
	}
	n := len(buf)
	b0 := byte(kind) | 0x18 | byte(n-2)<<5
	return append([]byte{b0}, buf...)
}

// encodeTableOperand encodes a literal-table or atom-table wide reference
// (always the N-byte big-endian unsigned index form, FromTable=true on
// decode).
func encodeTableOperand(kind Kind, idx uint32) []byte {
	return encodeOperandWide(kind, int64(idx))
}

func encodeInstr(op Opcode, operands ...[]byte) []byte {
	out := []byte{op}
	for _, o := range operands {
		out = append(out, o...)
	}
	return out
}

// chunk writers for the FOR1/BEAM container.

func writeChunk(tag string, payload []byte) []byte {
	var out []byte
	out = append(out, tag...)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(payload)))
	out = append(out, sizeBuf[:]...)
	out = append(out, payload...)
	if pad := len(out) % 4; pad != 0 {
		out = append(out, make([]byte, 4-pad)...)
	}
	return out
}

func buildContainer(chunks [][]byte) []byte {
	var body []byte
	body = append(body, "BEAM"...)
	for _, c := range chunks {
		body = append(body, c...)
	}
	var out []byte
	out = append(out, "FOR1"...)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(body)))
	out = append(out, sizeBuf[:]...)
	out = append(out, body...)
	return out
}

func encodeAtU8(names []string) []byte {
	var out []byte
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(names)))
	out = append(out, countBuf[:]...)
	for _, n := range names {
		out = append(out, byte(len(n)))
		out = append(out, n...)
	}
	return out
}

func encodeCodeChunk(instrs []byte) []byte {
	// sub-header: info-word-count(4)=16, instr-set version, opcode max,
	// label count, function count; only the leading length is load-bearing
	// for parseCode, so the remaining sub-header words are left zero.
	header := make([]byte, 4+16)
	binary.BigEndian.PutUint32(header[0:4], 16)
	return append(header, instrs...)
}

type exportRow struct {
	FunIdx, Arity, Label uint32
}

func encodeExpT(rows []exportRow) []byte {
	var out []byte
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(rows)))
	out = append(out, countBuf[:]...)
	for _, r := range rows {
		var b [12]byte
		binary.BigEndian.PutUint32(b[0:4], r.FunIdx)
		binary.BigEndian.PutUint32(b[4:8], r.Arity)
		binary.BigEndian.PutUint32(b[8:12], r.Label)
		out = append(out, b[:]...)
	}
	return out
}

type importRow struct {
	ModIdx, FunIdx, Arity uint32
}

func encodeImpT(rows []importRow) []byte {
	var out []byte
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(rows)))
	out = append(out, countBuf[:]...)
	for _, r := range rows {
		var b [12]byte
		binary.BigEndian.PutUint32(b[0:4], r.ModIdx)
		binary.BigEndian.PutUint32(b[4:8], r.FunIdx)
		binary.BigEndian.PutUint32(b[8:12], r.Arity)
		out = append(out, b[:]...)
	}
	return out
}
