package settings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brcm33xx/bcmhost/nv"
)

func TestPermDynPlaintextRoundTrip(t *testing.T) {
	group := buildTestGroup(t, "PERM", 1, []byte("abcdefgh"))
	pd := &PermDyn{Groups: []*nv.Group{group}}

	raw, err := pd.Write(0)
	require.NoError(t, err)

	read, err := ReadPermDyn(raw, nil, nil)
	require.NoError(t, err)
	require.Len(t, read.Groups, 1)
	require.Equal(t, [4]byte{'P', 'E', 'R', 'M'}, read.Groups[0].Magic)
}

func TestPermDynChecksumMatchesReferenceFormula(t *testing.T) {
	buf := []byte("0123456789")
	sum := permdynChecksum(buf)
	require.NotZero(t, sum)
	// 10 + 8 + 0x30313233 + 0x34353637 + (0x3839 << 16) = 0x9c9f687c,
	// complemented.
	require.Equal(t, uint32(0x63609783), sum)

	// Flipping a single byte must change the checksum.
	buf2 := append([]byte{}, buf...)
	buf2[0] ^= 0xff
	require.NotEqual(t, sum, permdynChecksum(buf2))
}

func TestPermDynOldStyleRoundTrip(t *testing.T) {
	group := buildTestGroup(t, "PERM", 1, []byte("x"))
	pd := &PermDyn{OldStyle: true, Groups: []*nv.Group{group}}

	raw, err := pd.Write(8192)
	require.NoError(t, err)
	require.Len(t, raw, 8192)

	for _, b := range raw[:oldStylePrefixLen] {
		require.Equal(t, byte(0xff), b)
	}

	read, err := ReadPermDyn(raw, nil, nil)
	require.NoError(t, err)
	require.True(t, read.OldStyle)
	require.Len(t, read.Groups, 1)
}
