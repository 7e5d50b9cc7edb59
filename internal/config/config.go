// Package config loads the TOML file that tells a cmd/ front-end which
// profiles to trust and how to reach a device, keeping that ambient
// concern out of the library packages themselves.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
)

// Device describes one entry under [[device]]: how to reach it, and
// optionally which profile/interface to assume instead of auto-detecting.
type Device struct {
	Name    string `toml:"name"`
	Kind    string `toml:"kind"` // serial, tcp, telnet
	Target  string `toml:"target"`
	Baud    int    `toml:"baud"`
	Profile string `toml:"profile"`
	Iface   string `toml:"interface"`

	TelnetUser string `toml:"telnet_user"`
	TelnetPass string `toml:"telnet_pass"`

	SuPassword string `toml:"su_password"`

	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
}

// File is the root of a loaded config.toml.
type File struct {
	Devices []Device `toml:"device"`
}

// Load parses path into a File.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &f, nil
}

// Get looks a device up by name.
func (f *File) Get(name string) (Device, bool) {
	for _, d := range f.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// DialConfig builds the iostream.Config this device entry describes.
func (d Device) DialConfig() iostream.Config {
	cfg := iostream.Config{
		Baud:           d.Baud,
		ConnectTimeout: time.Duration(d.ConnectTimeoutMS) * time.Millisecond,
	}
	switch d.Kind {
	case "serial":
		cfg.Kind = iostream.KindSerial
		cfg.Device = d.Target
	case "tcp":
		cfg.Kind = iostream.KindTCP
		cfg.Addr = d.Target
	case "telnet":
		cfg.Kind = iostream.KindTelnet
		cfg.Addr = d.Target
	}
	return cfg
}

// ProfileOptions builds the profile.Options a driver needs from this device's su
// password; address-space specific fields (ConthreadInstance etc.) remain
// the profile's own, since those are per-device-family constants, not
// per-connection settings.
func (d Device) ProfileOptions(base profile.Options) profile.Options {
	opts := base
	if d.SuPassword != "" {
		opts.SuPassword = d.SuPassword
	}
	return opts
}
