package settings

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSniffPermDyn(t *testing.T) {
	data := append(bytes.Repeat([]byte{0xff}, 32), []byte("rest of file")...)
	require.Equal(t, KindPermDyn, Sniff(data))
}

func TestSniffGatewaySettings(t *testing.T) {
	data := append([]byte(gwsKnownMagics[0]), []byte("...")...)
	require.Equal(t, KindGatewaySettings, Sniff(data))
}

func TestSniffUnknownWhenTooShort(t *testing.T) {
	require.Equal(t, KindUnknown, Sniff([]byte{0x01, 0x02}))
}
