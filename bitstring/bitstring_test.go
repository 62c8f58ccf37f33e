package bitstring

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/term"
)

func TestBuildIntegerAndBinarySegments(t *testing.T) {
	h := heap.New(4096)

	b := Init(h, 5)
	require.NoError(t, b.PutInteger(h, big.NewInt(0x0102), 2, 8, 0))
	src := h.NewBinary([]byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, b.PutBinary(h, src, 3, 8, 0))

	got := h.BinaryData(b.Term)
	assert.Equal(t, []byte{0x01, 0x02, 0xAA, 0xBB, 0xCC}, got)
}

func TestBuildNegativeIntegerTwosComplement(t *testing.T) {
	h := heap.New(4096)
	b := Init(h, 2)
	require.NoError(t, b.PutInteger(h, big.NewInt(-1), 2, 8, 0))
	assert.Equal(t, []byte{0xFF, 0xFF}, h.BinaryData(b.Term))
}

func TestAppendGrowsBuild(t *testing.T) {
	h := heap.New(4096)
	base := h.NewBinary([]byte{0x01, 0x02})
	b, err := Append(h, base, 2, 8, 0)
	require.NoError(t, err)
	require.NoError(t, b.PutInteger(h, big.NewInt(0x0304), 2, 8, 0))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, h.BinaryData(b.Term))
}

func TestMatchRoundTrip(t *testing.T) {
	h := heap.New(4096)
	bin := h.NewBinary([]byte{0x00, 0x2A, 'h', 'i', 0xFF})
	ms := StartMatch(h, bin, 2)

	v, ok, err := GetInteger(h, ms, 2, 8, 0, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0x2A), term.ToSmallInt(v))

	sub, ok, err := GetBinary(h, ms, 2, 8, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), h.BinaryData(sub))

	assert.True(t, TestTail(h, ms, 1))
	tail, err := GetTail(h, ms)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, h.BinaryData(tail))
}

func TestMatchStringAndSaveRestore(t *testing.T) {
	h := heap.New(4096)
	bin := h.NewBinary([]byte{'o', 'k', '!', 0x01})
	ms := StartMatch(h, bin, 1)

	assert.True(t, MatchString(h, ms, []byte("ok!")))
	Save(h, ms, 0)

	v, ok, err := GetInteger(h, ms, 1, 8, 0, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), term.ToSmallInt(v))

	Restore(h, ms, 0)
	assert.Equal(t, 3, GetPosition(h, ms))
}

func TestGetIntegerInsufficientBitsFails(t *testing.T) {
	h := heap.New(4096)
	bin := h.NewBinary([]byte{0x01})
	ms := StartMatch(h, bin, 0)
	_, ok, err := GetInteger(h, ms, 4, 8, 0, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsupportedShapesReturnErrUnsupported(t *testing.T) {
	h := heap.New(4096)
	_, err := InitBits(h, 13)
	assert.ErrorIs(t, err, ErrUnsupported)

	b := Init(h, 1)
	assert.ErrorIs(t, b.PutInteger(h, big.NewInt(1), 1, 1, 0), ErrUnsupported)

	bin := h.NewBinary([]byte{0x00})
	ms := StartMatch(h, bin, 0)
	_, _, err = GetInteger(h, ms, 1, 16, 0, false)
	assert.ErrorIs(t, err, ErrUnsupported)
}
