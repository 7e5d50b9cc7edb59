package rwx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/brcm33xx/bcmhost/profile"
)

func TestWidenAlignsAndRespectsMinChunk(t *testing.T) {
	lim := profile.RWXLimits{Alignment: 4, MinChunk: 8}
	off, length := widen(2, 3, lim)
	if off != 0 {
		t.Fatalf("expected widened offset 0, got %d", off)
	}
	if length < 8 {
		t.Fatalf("expected widened length >= min chunk 8, got %d", length)
	}
}

// stubDriver is a minimal rwx.Driver backed by an in-memory byte slice, used
// to exercise Session's chunk loop without a real console.
type stubDriver struct {
	caps    Caps
	rlim    profile.RWXLimits
	wlim    profile.RWXLimits
	mem     []byte
	base    uint64
	failCnt int
}

func (s *stubDriver) Capabilities() Caps                  { return s.caps }
func (s *stubDriver) ReadLimits() profile.RWXLimits       { return s.rlim }
func (s *stubDriver) WriteLimits() profile.RWXLimits      { return s.wlim }
func (s *stubDriver) Init(ctx context.Context, offset, length uint64, write bool) error {
	s.base = offset
	return nil
}
func (s *stubDriver) Cleanup(ctx context.Context) error { return nil }

func (s *stubDriver) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	rel := offset - s.base
	n := copy(buf, s.mem[rel:rel+uint64(len(buf))])
	return n, nil
}
func (s *stubDriver) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	rel := offset - s.base
	n := copy(s.mem[rel:], buf)
	return n, nil
}

func TestSessionReadExactWindow(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	d := &stubDriver{
		caps: Caps{Read: true},
		rlim: profile.RWXLimits{Alignment: 16, MinChunk: 16, MaxChunk: 16},
		mem:  data,
	}
	s := &Session{Driver: d}
	var out bytes.Buffer
	if err := s.Read(context.Background(), 3, 10, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data[3:13]) {
		t.Fatalf("got %v want %v", out.Bytes(), data[3:13])
	}
}

func TestSessionReadSniffsProgramStoreHeader(t *testing.T) {
	hdr := buildTestHeader()
	d := &stubDriver{
		caps: Caps{Read: true},
		rlim: profile.RWXLimits{Alignment: 4, MinChunk: 4, MaxChunk: 92},
		mem:  hdr,
	}
	var seen ProgramStoreHeader
	found := false
	s := &Session{Driver: d, OnHeader: func(h ProgramStoreHeader) { seen = h; found = true }}
	var out bytes.Buffer
	if err := s.Read(context.Background(), 0, uint64(len(hdr)), &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !found {
		t.Fatal("expected ProgramStore header to be sniffed")
	}
	if seen.LoadAddr != 0x80001000 {
		t.Fatalf("unexpected loadaddr 0x%x", seen.LoadAddr)
	}
}

// buildTestHeader builds a syntactically valid 92-byte ProgramStore header
// with a correct HCS field, for round-trip testing.
func buildTestHeader() []byte {
	buf := make([]byte, 92)
	put16 := func(off int, v uint16) { buf[off] = byte(v >> 8); buf[off+1] = byte(v) }
	put32 := func(off int, v uint32) {
		buf[off] = byte(v >> 24)
		buf[off+1] = byte(v >> 16)
		buf[off+2] = byte(v >> 8)
		buf[off+3] = byte(v)
	}
	put16(0, 0x1234)
	put16(2, 0)
	put16(4, 1)
	put16(6, 0)
	put32(8, 0)
	put32(12, 1024)
	put32(16, 0x80001000)
	hcs := crc16CCITT(buf[0:84]) ^ 0xFFFF
	put16(86, 0)
	put32(88, 0)
	put16(84, hcs)
	return buf
}

func TestParseProgramStoreHeaderRejectsBadHCS(t *testing.T) {
	buf := buildTestHeader()
	buf[84] ^= 0xFF
	if _, ok := ParseProgramStoreHeader(buf); ok {
		t.Fatal("expected corrupted HCS to fail validation")
	}
}

func TestBootloaderRAMReadChunk(t *testing.T) {
	console := &fakeConsole{lines: []string{"Value at 0x80000000: 0xDEADBEEF (hex)"}}
	d := NewBootloaderRAM(console)
	buf := make([]byte, 4)
	n, err := d.ReadChunk(context.Background(), 0x80000000, buf)
	if err != nil {
		t.Fatalf("read chunk: %v", err)
	}
	if n != 4 || !bytes.Equal(buf, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("unexpected bytes: %x", buf)
	}
}

// fakeConsole is a minimal ifacedrv.ConsoleDriver stub for rwx driver tests.
type fakeConsole struct {
	lines   []string
	written []string
}

func (f *fakeConsole) Kind() string { return "bldr" }
func (f *fakeConsole) IsActive(ctx context.Context, timeout time.Duration) bool { return true }
func (f *fakeConsole) RunCmd(ctx context.Context, cmd string) error {
	f.written = append(f.written, cmd)
	return nil
}
func (f *fakeConsole) RunCmdExpect(ctx context.Context, cmd, expect string, stopOnMatch bool, lineTimeout time.Duration) (bool, error) {
	f.written = append(f.written, cmd)
	return true, nil
}
func (f *fakeConsole) ForeachLine(timeout, lineTimeout time.Duration, fn func(string) bool) error {
	for _, l := range f.lines {
		if fn(l) {
			return nil
		}
	}
	return nil
}
func (f *fakeConsole) Cleanup() error { return nil }
