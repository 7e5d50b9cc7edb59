package settings

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brcm33xx/bcmhost/nv"
	"github.com/brcm33xx/bcmhost/profile"
)

// buildTestGroup hand-crafts a framed nv.Group carrying an opaque payload,
// bypassing the catalog registry (which isn't wired in these tests).
func buildTestGroup(t *testing.T, magic string, version uint16, payload []byte) *nv.Group {
	t.Helper()
	var raw bytes.Buffer
	var hdr [8]byte
	total := 8 + len(payload)
	hdr[0] = byte(total >> 8)
	hdr[1] = byte(total)
	copy(hdr[2:6], []byte(magic))
	hdr[6] = byte(version >> 8)
	hdr[7] = byte(version)
	raw.Write(hdr[:])
	raw.Write(payload)

	g, err := nv.ReadGroup(bytes.NewReader(raw.Bytes()), nv.FormatUnknown)
	require.NoError(t, err)
	return g
}

func testCatalog() *profile.Catalog {
	return profile.NewCatalog(profile.Builtin()...)
}

func TestGatewaySettingsPlaintextRoundTrip(t *testing.T) {
	group := buildTestGroup(t, "TEST", 1, []byte("hello world"))
	gw := &GatewaySettings{
		Magic:   gwsKnownMagics[1],
		Version: 2,
		Groups:  []*nv.Group{group},
	}

	raw, err := gw.Write(false)
	require.NoError(t, err)

	cat := testCatalog()
	read, err := ReadGatewaySettings(raw, cat, nil, "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, gw.Magic, read.Magic)
	require.Equal(t, uint16(2), read.Version)
	require.Len(t, read.Groups, 1)
	require.Equal(t, [4]byte{'T', 'E', 'S', 'T'}, read.Groups[0].Magic)
}

func TestGatewaySettingsEncryptedRoundTrip(t *testing.T) {
	cat := testCatalog()
	tc7200, ok := cat.Get("tc7200")
	require.True(t, ok)

	group := buildTestGroup(t, "TEST", 1, []byte("encrypted payload!"))
	gw := &GatewaySettings{
		Profile: tc7200,
		Magic:   gwsKnownMagics[1],
		Version: 1,
		Key:     tc7200.DefaultKeys[0],
		Groups:  []*nv.Group{group},
	}

	raw, err := gw.Write(true)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "encrypted payload")

	read, err := ReadGatewaySettings(raw, cat, tc7200, "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, tc7200.Name, read.Profile.Name)
	require.Len(t, read.Groups, 1)
}

func TestValidateMagicBruteForceFallback(t *testing.T) {
	// Corrupt one byte of the distinguishing prefix (so none of the three
	// exact literal magics match) while keeping the shared suffix intact,
	// exercising validateMagic's substring-anchored fallback.
	corrupted := "6u9E9ewf0jt9y85w690je4669jye4d-" + gwsMagicSuffix
	noisy := append([]byte(corrupted), []byte{0x00, 0x01}...)

	for _, m := range gwsKnownMagics {
		require.False(t, bytes.HasPrefix(noisy, []byte(m)))
	}

	magic, ok := validateMagic(noisy)
	require.True(t, ok)
	require.Equal(t, corrupted, magic)
}

func TestStripCircumfix(t *testing.T) {
	prefix := bytes.Repeat([]byte{0xab}, 12)
	inner := []byte("payload")
	raw := append(append(append([]byte{}, prefix...), inner...), prefix...)

	body, circumfix := stripCircumfix(raw)
	require.Equal(t, inner, body)
	require.Equal(t, prefix, circumfix)
}
