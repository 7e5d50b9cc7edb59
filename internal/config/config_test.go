package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brcm33xx/bcmhost/iostream"
)

func TestLoadParsesDevices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[[device]]
name = "modem1"
kind = "serial"
target = "/dev/ttyUSB0"
baud = 115200
profile = "tc7200"

[[device]]
name = "modem2"
kind = "telnet"
target = "192.168.100.1:23"
telnet_user = "admin"
telnet_pass = "admin"
connect_timeout_ms = 2000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Devices, 2)

	d1, ok := f.Get("modem1")
	require.True(t, ok)
	require.Equal(t, "tc7200", d1.Profile)
	cfg1 := d1.DialConfig()
	require.Equal(t, iostream.KindSerial, cfg1.Kind)
	require.Equal(t, "/dev/ttyUSB0", cfg1.Device)
	require.Equal(t, 115200, cfg1.Baud)

	d2, ok := f.Get("modem2")
	require.True(t, ok)
	cfg2 := d2.DialConfig()
	require.Equal(t, iostream.KindTelnet, cfg2.Kind)
	require.Equal(t, "192.168.100.1:23", cfg2.Addr)
}

func TestGetMissingDevice(t *testing.T) {
	f := &File{}
	_, ok := f.Get("nope")
	require.False(t, ok)
}
