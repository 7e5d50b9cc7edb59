package bcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAES256ECBRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plain := []byte("0123456789abcdef0123456789abcdef")[:32]
	ct, err := AES256ECB(plain, key, true)
	require.NoError(t, err)
	pt, err := AES256ECB(ct, key, false)
	require.NoError(t, err)
	require.Equal(t, plain, pt)
}

func TestAES128CBCRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
		iv[i] = byte(i + 1)
	}
	plain := []byte("0123456789abcdef")
	ct, err := AES128CBC(plain, key, iv, true)
	require.NoError(t, err)
	pt, err := AES128CBC(ct, key, iv, false)
	require.NoError(t, err)
	require.Equal(t, plain, pt)
}

func TestDESAnd3DESRoundTrip(t *testing.T) {
	key8 := []byte("01234567")
	plain := []byte("abcdefgh")
	ct, err := DESECB(plain, key8, true)
	require.NoError(t, err)
	pt, err := DESECB(ct, key8, false)
	require.NoError(t, err)
	require.Equal(t, plain, pt)

	key24 := []byte("0123456789abcdefghijklmn")
	ct3, err := TripleDESECB(plain, key24, true)
	require.NoError(t, err)
	pt3, err := TripleDESECB(ct3, key24, false)
	require.NoError(t, err)
	require.Equal(t, plain, pt3)
}

func TestXORIsInvolution(t *testing.T) {
	buf := []byte("hello world")
	ct := XOR(buf, 0x5a)
	pt := XOR(ct, 0x5a)
	require.Equal(t, buf, pt)
}

func TestSub16x16RoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	enc := Sub16x16(buf, true)
	dec := Sub16x16(enc, false)
	require.Equal(t, buf, dec)
}

func TestMotorolaIsInvolution(t *testing.T) {
	buf := []byte("the quick brown fox")
	ct := Motorola(buf, 0x42)
	pt := Motorola(ct, 0x42)
	require.Equal(t, buf, pt)
}

func TestPKCS7PadUnpadRoundTrip(t *testing.T) {
	buf := []byte("12345")
	padded, err := Pad(buf, 16, PadPKCS7, 0)
	require.NoError(t, err)
	require.Len(t, padded, 16)
	orig, ok := Unpad(padded, 16, PadPKCS7)
	require.True(t, ok)
	require.Equal(t, buf, orig)
}

func TestANSIX923PadUnpad(t *testing.T) {
	buf := []byte("hello")
	padded, err := Pad(buf, 8, PadANSIX923, 0)
	require.NoError(t, err)
	orig, ok := Unpad(padded, 8, PadANSIX923)
	require.True(t, ok)
	require.Equal(t, buf, orig)
}

func TestUnpadLeavesBufferOnFailure(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	got, ok := Unpad(buf, 16, PadPKCS7)
	require.False(t, ok)
	require.Equal(t, buf, got)
}
