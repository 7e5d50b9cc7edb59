package settings

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildBoltEnv(t *testing.T, vars []BoltVar) []byte {
	t.Helper()
	be := &BoltEnv{Unk1: 1, Unk2: 2, WriteCount: 4, Vars: vars}
	raw, err := be.Write(512)
	require.NoError(t, err)
	return raw
}

func TestBoltEnvRoundTrip(t *testing.T) {
	vars := []BoltVar{
		{Name: "BOOT_PARTITION", Value: "image1"},
		{Name: "RUN_FROM", Value: "0x80000000", RO: true},
	}
	raw := buildBoltEnv(t, vars)

	be, err := ReadBoltEnv(raw, nil, nil)
	require.NoError(t, err)
	require.Len(t, be.Vars, 2)
	require.Equal(t, "BOOT_PARTITION", be.Vars[0].Name)
	require.Equal(t, "image1", be.Vars[0].Value)
	require.True(t, be.Vars[1].RO)
	require.Equal(t, "0x80000000", be.Vars[1].Value)
}

func TestBoltEnvRejectsBadMagic(t *testing.T) {
	raw := buildBoltEnv(t, nil)
	raw[4] ^= 0xff
	_, err := ReadBoltEnv(raw, nil, nil)
	require.Error(t, err)
}

func TestBoltEnvChecksumField(t *testing.T) {
	raw := buildBoltEnv(t, []BoltVar{{Name: "X", Value: "1"}})
	size := binary.LittleEndian.Uint32(raw[20:24])
	region := raw[boltEnvHdrLen : boltEnvHdrLen+size]
	want := binary.LittleEndian.Uint32(raw[24:28])
	require.Equal(t, crc32.ChecksumIEEE(region), want)
}

// TestBoltEnvReadsLiteralFixture hand-assembles a header+TLV region byte
// for byte against spec.md §6's documented little-endian frame (the same
// layout bcm2boltenv.cc's boltenv_header reads as a packed struct on a
// little-endian host), rather than round-tripping through the student's
// own Write — this is what would have caught the tlv_cheat/unk/size/
// checksum endianness bug, since a self round trip is endianness-blind.
func TestBoltEnvReadsLiteralFixture(t *testing.T) {
	text := "FOO=bar"
	region := []byte{boltVar, byte(len(text) + 1), 0}
	region = append(region, []byte(text)...)
	region = append(region, boltVarEnd)
	for len(region)%16 != 0 {
		region = append(region, 0)
	}
	checksum := crc32.ChecksumIEEE(region)

	var raw []byte
	raw = append(raw, 0x01, 0x1a, 0x00, 0x00) // tlv_cheat = 0x1a01, LE
	raw = append(raw, 0xed, 0xfe, 0xbe, 0xba) // magic = 0xbabefeed, LE
	var field [4]byte
	binary.LittleEndian.PutUint32(field[:], 0) // unk1
	raw = append(raw, field[:]...)
	binary.LittleEndian.PutUint32(field[:], 0) // unk2
	raw = append(raw, field[:]...)
	binary.LittleEndian.PutUint32(field[:], 1) // write_count
	raw = append(raw, field[:]...)
	binary.LittleEndian.PutUint32(field[:], uint32(len(region))) // size
	raw = append(raw, field[:]...)
	binary.LittleEndian.PutUint32(field[:], checksum)
	raw = append(raw, field[:]...)
	raw = append(raw, region...)

	be, err := ReadBoltEnv(raw, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), be.WriteCount)
	require.Len(t, be.Vars, 1)
	require.Equal(t, "FOO", be.Vars[0].Name)
	require.Equal(t, "bar", be.Vars[0].Value)
}

func TestBoltEnvWriteRejectsOversizedRegion(t *testing.T) {
	be := &BoltEnv{Vars: []BoltVar{{Name: "X", Value: "1"}}}
	_, err := be.Write(boltEnvHdrLen + 4)
	require.Error(t, err)
}
