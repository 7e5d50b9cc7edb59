package ifacedrv

import (
	"context"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/iostream"
)

// Bootloader drives the device's bootloader menu.
type Bootloader struct {
	Driver
}

// NewBootloader wraps stream as a bootloader driver.
func NewBootloader(stream iostream.Stream) *Bootloader {
	return &Bootloader{Driver{Stream: stream, name: "bldr"}}
}

// IsActive scans for the bootloader's "Main Menu" sentinel, sending a bare
// newline first if nothing arrives passively.
func (b *Bootloader) IsActive(ctx context.Context, timeout time.Duration) bool {
	if !b.Stream.Pending(200 * time.Millisecond) {
		b.Stream.WriteLine(ctx, "")
	}
	found := false
	b.ForeachLine(timeout, 200*time.Millisecond, func(line string) bool {
		if strings.Contains(line, "Main Menu") {
			found = true
			return true
		}
		return false
	})
	return found
}

func (b *Bootloader) Cleanup() error { return nil }
