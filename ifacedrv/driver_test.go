package ifacedrv

import (
	"context"
	"testing"
	"time"

	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
)

// fakeStream is a minimal iostream.Stream double: ReadLine drains a
// preloaded queue, Write/WriteLine append to a log for assertions.
type fakeStream struct {
	lines   []string
	written []string
}

func (f *fakeStream) WriteLine(ctx context.Context, line string) error {
	f.written = append(f.written, line)
	return nil
}
func (f *fakeStream) Write(ctx context.Context, p []byte) error { return nil }
func (f *fakeStream) ReadByte(ctx context.Context) (byte, iostream.Symbol, error) {
	return 0, iostream.EOF, nil
}
func (f *fakeStream) ReadLine(timeout time.Duration) (string, error) {
	if len(f.lines) == 0 {
		return "", context.DeadlineExceeded
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}
func (f *fakeStream) Pending(timeout time.Duration) bool { return len(f.lines) > 0 }
func (f *fakeStream) RecentLines() []string               { return f.written }
func (f *fakeStream) Close() error                        { return nil }

func TestBootloaderIsActive(t *testing.T) {
	fs := &fakeStream{lines: []string{"some boot banner", "1) Main Menu", "2) Exit"}}
	b := NewBootloader(fs)
	if !b.IsActive(context.Background(), time.Second) {
		t.Fatal("expected bootloader to detect Main Menu")
	}
}

func TestBFCIsActiveUnprivileged(t *testing.T) {
	fs := &fakeStream{lines: []string{"RG_Console>"}}
	b := NewBFC(fs, profile.Options{})
	if !b.IsActive(context.Background(), time.Second) {
		t.Fatal("expected BFC prompt to be detected")
	}
	if b.Privileged() {
		t.Fatal("RG_Console prompt should not be privileged")
	}
}

func TestBFCIsActivePrivileged(t *testing.T) {
	fs := &fakeStream{lines: []string{"CM>"}}
	b := NewBFC(fs, profile.Options{})
	if !b.IsActive(context.Background(), time.Second) {
		t.Fatal("expected BFC prompt to be detected")
	}
	if !b.Privileged() {
		t.Fatal("plain CM prompt should be privileged")
	}
}

func TestBFCEscalateViaSwitchCpuConsole(t *testing.T) {
	fs := &fakeStream{lines: []string{"RG_Console>"}}
	b := NewBFC(fs, profile.Options{})
	b.IsActive(context.Background(), time.Second)
	fs.lines = []string{"CM>"}
	if err := b.Escalate(context.Background()); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if !b.Privileged() {
		t.Fatal("expected privilege after switchCpuConsole succeeded")
	}
	if fs.written[len(fs.written)-1] != "switchCpuConsole" {
		t.Fatalf("expected switchCpuConsole to be sent, got %v", fs.written)
	}
}

func TestBFCEscalateFallsBackToRAMWrite(t *testing.T) {
	fs := &fakeStream{lines: []string{"RG_Console>"}}
	opts := profile.Options{HasConthreadInst: true, ConthreadInstance: 0x1000, ConthreadPrivOff: 0x4}
	b := NewBFC(fs, opts)
	b.IsActive(context.Background(), time.Second)

	var wroteAddr uint32
	var wroteVal byte
	b.SetRAMWriter(func(ctx context.Context, addr uint32, val byte) error {
		wroteAddr, wroteVal = addr, val
		return nil
	})

	// No matching reply lines queued: switchCpuConsole and su both miss.
	fs.lines = nil
	if err := b.Escalate(context.Background()); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if !b.Privileged() {
		t.Fatal("expected privilege after RAM-write fallback")
	}
	if wroteAddr != 0x1004 || wroteVal != 0x01 {
		t.Fatalf("unexpected RAM write target: addr=0x%x val=0x%x", wroteAddr, wroteVal)
	}
}

func TestBFCTelnetLoginHandshake(t *testing.T) {
	fs := &fakeStream{lines: []string{"Login:", "Password:", "CM>"}}
	tn := NewBFCTelnet(fs, profile.Options{}, "admin", "secret")
	if !tn.IsActive(context.Background(), time.Second) {
		t.Fatal("expected telnet login to succeed")
	}
	if fs.written[0] != "admin" || fs.written[1] != "secret" {
		t.Fatalf("expected username then password to be sent, got %v", fs.written)
	}
}

func TestBFCTelnetInvalidLogin(t *testing.T) {
	fs := &fakeStream{lines: []string{"Login:", "Password:", "Invalid login"}}
	tn := NewBFCTelnet(fs, profile.Options{}, "admin", "wrong")
	if tn.IsActive(context.Background(), time.Second) {
		t.Fatal("expected telnet login to fail")
	}
}
