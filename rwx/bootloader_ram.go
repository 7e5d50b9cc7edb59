package rwx

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// BootloaderRAM is the one-word-per-round-trip bootloader memory driver
// (§4.D): a 32-bit read or write per command, word-aligned.
type BootloaderRAM struct {
	Console   ifacedrv.ConsoleDriver
	readMode  bool
	writeFlag bool
}

var valueAtRe = regexp.MustCompile(`Value at 0x[0-9A-Fa-f]+: 0x([0-9A-Fa-f]+) \(hex\)`)

// NewBootloaderRAM wraps an already-detected bootloader console driver.
func NewBootloaderRAM(console ifacedrv.ConsoleDriver) *BootloaderRAM {
	return &BootloaderRAM{Console: console}
}

func (d *BootloaderRAM) Capabilities() Caps { return Caps{Read: true, Write: true, Exec: true} }

func (d *BootloaderRAM) ReadLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 4, MinChunk: 4, MaxChunk: 4}
}
func (d *BootloaderRAM) WriteLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 4, MinChunk: 4, MaxChunk: 4}
}

func (d *BootloaderRAM) Init(ctx context.Context, offset, length uint64, write bool) error {
	d.writeFlag = write
	d.readMode = false
	return nil
}

// ReadChunk enters "read memory" mode once (command "r"), sends the hex
// address, and parses exactly one "Value at 0xAAAA: 0xVVVV (hex)" line.
func (d *BootloaderRAM) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	if len(buf) != 4 {
		return 0, xerrors.Programmer("bootloader-ram: chunk size must be 4, got %d", len(buf))
	}
	if !d.readMode {
		if err := d.Console.RunCmd(ctx, "r"); err != nil {
			return 0, err
		}
		d.readMode = true
	}
	if err := d.Console.RunCmd(ctx, fmt.Sprintf("%08x", offset)); err != nil {
		return 0, err
	}

	var value uint32
	found := false
	err := d.Console.ForeachLine(time.Second, 200*time.Millisecond, func(line string) bool {
		if m := valueAtRe.FindStringSubmatch(line); m != nil {
			v, perr := strconv.ParseUint(m[1], 16, 32)
			if perr == nil {
				value = uint32(v)
				found = true
				return true
			}
		}
		return false
	})
	if err != nil || !found {
		return 0, xerrors.Protocol(int64(offset), "", "bootloader-ram: no Value-at line received")
	}
	buf[0] = byte(value >> 24)
	buf[1] = byte(value >> 16)
	buf[2] = byte(value >> 8)
	buf[3] = byte(value)
	return 4, nil
}

// WriteChunk sends command "w", the address, then the hex word, checking
// for a return to the main menu.
func (d *BootloaderRAM) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	if len(buf) != 4 {
		return 0, xerrors.Programmer("bootloader-ram: chunk size must be 4, got %d", len(buf))
	}
	if err := d.Console.RunCmd(ctx, "w"); err != nil {
		return 0, err
	}
	if err := d.Console.RunCmd(ctx, fmt.Sprintf("%08x", offset)); err != nil {
		return 0, err
	}
	word := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	matched, err := d.Console.RunCmdExpect(ctx, fmt.Sprintf("%08x", word), "Main Menu", true, time.Second)
	if err != nil {
		return 0, err
	}
	if !matched {
		return 0, xerrors.Protocol(int64(offset), "", "bootloader-ram: write did not return to Main Menu")
	}
	d.readMode = false
	return 4, nil
}

// Exec invokes the loaded code at addr via the "j" command.
func (d *BootloaderRAM) Exec(ctx context.Context, addr uint32) error {
	if err := d.Console.RunCmd(ctx, "j"); err != nil {
		return err
	}
	return d.Console.RunCmd(ctx, fmt.Sprintf("%08x", addr))
}

func (d *BootloaderRAM) Cleanup(ctx context.Context) error {
	d.readMode = false
	return nil
}
