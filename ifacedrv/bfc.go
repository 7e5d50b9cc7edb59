package ifacedrv

import (
	"context"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
)

// RAMWriter is the minimal hook BFC.Escalate falls back to when neither
// switchCpuConsole nor su succeed: writing a single privilege byte directly
// into the console-thread control block. Wired by the rwx package (its
// bfc-ram driver) after construction, to avoid an ifacedrv<->rwx import
// cycle.
type RAMWriter func(ctx context.Context, addr uint32, val byte) error

// BFC drives the Broadcom Field Control console.
type BFC struct {
	Driver

	Options   profile.Options
	privilege bool
	ramWriter RAMWriter
}

// NewBFC wraps stream as a BFC driver with the given version's options.
func NewBFC(stream iostream.Stream, opts profile.Options) *BFC {
	return &BFC{Driver: Driver{Stream: stream, name: "bfc"}, Options: opts}
}

// SetRAMWriter installs the RAM-write privilege-escalation fallback.
func (b *BFC) SetRAMWriter(w RAMWriter) { b.ramWriter = w }

// Privileged reports whether the console is currently at an unrestricted
// prompt (neither RG_Console, CM_Console nor plain Console).
func (b *BFC) Privileged() bool { return b.privilege }

// isBFCPrompt reports whether line looks like a BFC prompt: ending in ">"
// or "/", beginning with "CM", "RG" or "Console".
func isBFCPrompt(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasSuffix(line, ">") && !strings.HasSuffix(line, "/") {
		return false
	}
	return strings.HasPrefix(line, "CM") || strings.HasPrefix(line, "RG") || strings.HasPrefix(line, "Console")
}

func isRestrictedPrompt(line string) bool {
	line = strings.TrimSpace(line)
	return strings.Contains(line, "RG_Console") || strings.Contains(line, "CM_Console") || strings.HasPrefix(line, "Console")
}

// IsActive scans for a BFC-shaped prompt line.
func (b *BFC) IsActive(ctx context.Context, timeout time.Duration) bool {
	if !b.Stream.Pending(200 * time.Millisecond) {
		b.Stream.WriteLine(ctx, "")
	}
	found := false
	b.ForeachLine(timeout, 200*time.Millisecond, func(line string) bool {
		if isBFCPrompt(line) {
			b.privilege = !isRestrictedPrompt(line)
			found = true
			return true
		}
		return false
	})
	return found
}

// Escalate raises privilege by trying, in order: switchCpuConsole, su
// <password>, then a direct RAM write of the privilege flag (if a
// conthread_instance pointer is known). Returns nil once any step yields an
// unrestricted prompt.
func (b *BFC) Escalate(ctx context.Context) error {
	if b.privilege {
		return nil
	}

	if matched, _ := b.RunCmdExpect(ctx, "switchCpuConsole", ">", true, time.Second); matched {
		b.privilege = true
		return nil
	}

	pw := b.Options.SuPassword
	if pw == "" {
		pw = "brcm"
	}
	matched, err := b.RunCmdExpect(ctx, "su "+pw, ">", true, time.Second)
	if err != nil {
		return err
	}
	if matched {
		b.privilege = true
		return nil
	}

	if b.Options.HasConthreadInst && b.ramWriter != nil {
		addr := b.Options.ConthreadInstance + b.Options.ConthreadPrivOff
		if err := b.ramWriter(ctx, addr, 0x01); err != nil {
			return xerrors.InterfaceWrap(err, b.Stream.RecentLines(), "privilege escalation: RAM write at 0x%x failed", addr)
		}
		b.privilege = true
		return nil
	}

	return xerrors.Interface(b.Stream.RecentLines(), "privilege escalation failed: switchCpuConsole, su and RAM fallback all unavailable or refused")
}

func (b *BFC) Cleanup() error { return nil }
