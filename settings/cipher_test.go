package settings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brcm33xx/bcmhost/profile"
)

func TestCandidateKeysOrder(t *testing.T) {
	cat := testCatalog()
	tc7200, ok := cat.Get("tc7200")
	require.True(t, ok)

	explicit := []byte{0x01}
	keys := candidateKeys(tc7200, explicit, "hunter2")

	require.Equal(t, explicit, keys[0])
	require.Equal(t, tc7200.KDF("hunter2", 32), keys[1])
	require.Equal(t, tc7200.DefaultKeys[0], keys[2])
	require.Equal(t, tc7200.DefaultKeys[1], keys[3])
	require.Nil(t, keys[len(keys)-1])
}

func TestCandidateKeysNoKDFOrExplicit(t *testing.T) {
	p := &profile.Profile{Name: "bare", DefaultKeys: [][]byte{{0xaa}}}
	keys := candidateKeys(p, nil, "")
	require.Equal(t, [][]byte{{0xaa}, nil}, keys)
}

func TestEncryptDecryptRoundTripXOR(t *testing.T) {
	plain := []byte("roundtrip me")
	key := []byte{0x42}
	enc, err := encrypt(profile.EncXOR, plain, key, nil)
	require.NoError(t, err)
	dec, err := decrypt(profile.EncXOR, enc, key, nil)
	require.NoError(t, err)
	require.Equal(t, plain, dec)
}
