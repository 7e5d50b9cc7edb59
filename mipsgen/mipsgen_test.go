package mipsgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const addiuOp Word = 0x24000000 // addiu zero,zero,imm (rs=rt=0)

func TestResolveForwardBranch(t *testing.T) {
	lbl, err := Label(addiuOp, 1)
	require.NoError(t, err)

	prog := NewProgram([]Word{
		0x10000000 | labelMarker | 1, // beqz-ish branch referencing label 1
		lbl,
	})
	require.NoError(t, Resolve(prog, addiuOp&^0xffff))
	// target index 1, branch at index 0: offset = 1-0-1 = 0
	require.EqualValues(t, 0, int16(prog.Words[0]&0xffff))
	require.EqualValues(t, 0, prog.Words[1])
}

func TestResolveUnresolvedBranch(t *testing.T) {
	prog := NewProgram([]Word{0x10000000 | labelMarker | 5})
	err := Resolve(prog, addiuOp&^0xffff)
	require.Error(t, err)
}

func TestLabelOutOfRange(t *testing.T) {
	_, err := Label(addiuOp, 128)
	require.Error(t, err)
}

func TestApplyPatchIsSymmetric(t *testing.T) {
	prog := NewProgram([]Word{0xdeadbeef})
	reverted, err := Apply(prog, 0, Patch{Addr: 0x1000, Word: 0xcafebabe})
	require.NoError(t, err)
	require.EqualValues(t, 0xcafebabe, prog.Words[0])
	require.EqualValues(t, 0xdeadbeef, reverted.Word)

	_, err = Apply(prog, 0, reverted)
	require.NoError(t, err)
	require.EqualValues(t, 0xdeadbeef, prog.Words[0])
}

func TestBytesBigEndian(t *testing.T) {
	prog := NewProgram([]Word{0x01020304})
	require.Equal(t, []byte{1, 2, 3, 4}, prog.Bytes())
}
