package rwx

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/mipsgen"
	"github.com/brcm33xx/bcmhost/profile"
)

// Invoker lets the Code driver trigger execution of the resident payload
// without caring whether the underlying console is bootloader or BFC.
type Invoker interface {
	Exec(ctx context.Context, addr uint32) error
}

// CodeLayout names the payload template's patch slots (§4.D "code" driver):
// offset, length, chunk size, printf address, flash-function address, and
// the checksum word, each a word index into the uploaded program.
type CodeLayout struct {
	OffsetSlot     int
	LengthSlot     int
	ChunkSizeSlot  int
	PrintfSlot     int
	FlashFuncSlot  int
	ChecksumSlot   int // last word: resident-checksum cache key
}

// Code is the accelerated dumpcode/writecode driver: it uploads a
// pre-assembled MIPS payload once, patches its header fields per request,
// invokes it, and parses its ":HHHHHHHH:..." chunk-dump output (§4.D).
type Code struct {
	RAM     Driver
	Invoke  Invoker
	Version profile.Version
	Layout  CodeLayout

	// Template is the caller-assembled, mipsgen.Resolve'd payload; Code
	// copies it per-session so repeated dumps don't mutate a shared image.
	Template *mipsgen.Program

	// flashFuncAddr is patched into Layout.FlashFuncSlot when FlashSpace
	// was given to NewCode, wiring the payload's flash-write jump target
	// for the writecode-to-flash path (§4.D).
	flashFuncAddr uint32
	hasFlashFunc  bool

	resident         bool
	residentChecksum uint32
}

// NewCode builds a Code driver templated for RAM dumpcode/writecode.
// flashSpace, if non-empty, names the profile space whose FuncWrite
// descriptor supplies the flash-write function address patched into
// Layout.FlashFuncSlot; pass "" for a RAM-only template with no flash
// patch slot to fill.
func NewCode(ram Driver, invoke Invoker, version profile.Version, layout CodeLayout, template *mipsgen.Program, flashSpace string) (*Code, error) {
	d := &Code{RAM: ram, Invoke: invoke, Version: version, Layout: layout, Template: template}
	if flashSpace != "" {
		fn, ok := version.FuncFor(flashSpace, profile.FuncWrite)
		if !ok {
			return nil, xerrors.Programmer("code: profile has no flash write function descriptor for space %q", flashSpace)
		}
		d.flashFuncAddr = fn.Addr
		d.hasFlashFunc = true
	}
	return d, nil
}

func (d *Code) Capabilities() Caps { return Caps{Read: true, Write: true, Exec: true} }

func (d *Code) ReadLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 4, MinChunk: 16, MaxChunk: 4096}
}
func (d *Code) WriteLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 4, MinChunk: 16, MaxChunk: 4096}
}

// crc16c0de is the dumpcode payload's self-checksum: CRC-16/CCITT over the
// program's body words (every word but the checksum slot itself), matching
// the "expected CRC-16/c0de pattern" cache-hit test of §4.D.
func crc16c0de(prog *mipsgen.Program, checksumSlot int) uint32 {
	body := prog.Bytes()
	start := checksumSlot * 4
	if start > len(body) {
		start = len(body)
	}
	return uint32(crc16CCITT(body[:start]))
}

// upload patches the template's header slots for this request, then
// uploads it by read-modify-write: the resident checksum word is read
// first; if it already matches, only the header data is rewritten and the
// body upload is skipped entirely.
func (d *Code) upload(ctx context.Context, offsetArg, lengthArg, chunkSize uint32) error {
	prog := mipsgen.NewProgram(d.Template.Words)
	prog.Words[d.Layout.OffsetSlot] = mipsgen.Word(offsetArg)
	prog.Words[d.Layout.LengthSlot] = mipsgen.Word(lengthArg)
	prog.Words[d.Layout.ChunkSizeSlot] = mipsgen.Word(chunkSize)
	prog.Words[d.Layout.PrintfSlot] = mipsgen.Word(d.Version.Printf)
	if d.hasFlashFunc {
		prog.Words[d.Layout.FlashFuncSlot] = mipsgen.Word(d.flashFuncAddr)
	}
	checksum := crc16c0de(prog, d.Layout.ChecksumSlot)
	prog.Words[d.Layout.ChecksumSlot] = mipsgen.Word(checksum)

	loadAddr := d.Version.LoadAddr
	lastWordAddr := loadAddr + uint32(d.Layout.ChecksumSlot*4)

	var cur [4]byte
	if _, err := d.RAM.ReadChunk(ctx, uint64(lastWordAddr), cur[:]); err == nil {
		curVal := uint32(cur[0])<<24 | uint32(cur[1])<<16 | uint32(cur[2])<<8 | uint32(cur[3])
		if curVal == checksum && d.resident && d.residentChecksum == checksum {
			return d.uploadHeaderOnly(ctx, prog)
		}
	}

	body := prog.Bytes()
	for i := 0; i < len(body); i += 4 {
		word := body[i : i+4]
		var existing [4]byte
		if n, err := d.RAM.ReadChunk(ctx, uint64(loadAddr)+uint64(i), existing[:]); err == nil && n == 4 && existing == [4]byte(word) {
			continue
		}
		if _, err := d.RAM.WriteChunk(ctx, uint64(loadAddr)+uint64(i), word); err != nil {
			return err
		}
	}
	d.resident = true
	d.residentChecksum = checksum
	return nil
}

// uploadHeaderOnly rewrites only the patched header words (offset, length,
// chunk size), used on a checksum cache hit.
func (d *Code) uploadHeaderOnly(ctx context.Context, prog *mipsgen.Program) error {
	loadAddr := d.Version.LoadAddr
	for _, slot := range []int{d.Layout.OffsetSlot, d.Layout.LengthSlot, d.Layout.ChunkSizeSlot} {
		w := prog.Words[slot]
		wb := []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
		if _, err := d.RAM.WriteChunk(ctx, uint64(loadAddr)+uint64(slot*4), wb); err != nil {
			return err
		}
	}
	return nil
}

func (d *Code) Init(ctx context.Context, offset, length uint64, write bool) error { return nil }
func (d *Code) Cleanup(ctx context.Context) error                                 { return nil }

var chunkTokenRe = regexp.MustCompile(`^:([0-9A-Fa-f]{8}):([0-9A-Fa-f]{8}):([0-9A-Fa-f]{8}):([0-9A-Fa-f]{8})$`)

func parseChunkLine(line string) ([]byte, bool) {
	m := chunkTokenRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	out := make([]byte, 0, 16)
	for _, g := range m[1:] {
		v, err := strconv.ParseUint(g, 16, 32)
		if err != nil {
			return nil, false
		}
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return out, true
}

// ReadChunk uploads/patches the payload for [offset,len(buf)) and invokes
// it, parsing its ":HHHHHHHH:..." 16-byte-chunk output.
func (d *Code) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	if err := d.upload(ctx, uint32(offset), uint32(len(buf)), 16); err != nil {
		return 0, err
	}
	if err := d.Invoke.Exec(ctx, d.Version.LoadAddr); err != nil {
		return 0, err
	}

	type lineSource interface {
		ForeachLine(timeout, lineTimeout time.Duration, fn func(string) bool) error
	}
	ls, ok := d.Invoke.(lineSource)
	if !ok {
		return 0, xerrors.Programmer("code: invoker does not expose line consumption")
	}

	got := 0
	err := ls.ForeachLine(60*time.Second, 2*time.Second, func(line string) bool {
		chunk, ok := parseChunkLine(line)
		if !ok {
			return false
		}
		n := copy(buf[got:], chunk)
		got += n
		return got >= len(buf)
	})
	if err != nil || got < len(buf) {
		return got, xerrors.Protocol(int64(offset), "", "code: dumpcode produced %d of %d requested bytes", got, len(buf))
	}
	return got, nil
}

// WriteChunk drives writecode: repeatedly supplies one 16-byte line, which
// the resident payload accepts via scanf/sscanf+getline, echoing the
// accepted offset back.
func (d *Code) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	if err := d.upload(ctx, uint32(offset), uint32(len(buf)), 16); err != nil {
		return 0, err
	}
	if err := d.Invoke.Exec(ctx, d.Version.LoadAddr); err != nil {
		return 0, err
	}
	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		line := fmt.Sprintf("%x", buf[i:end])
		type writer interface {
			RunCmdExpect(ctx context.Context, cmd, expect string, stopOnMatch bool, lineTimeout time.Duration) (bool, error)
		}
		w, ok := d.Invoke.(writer)
		if !ok {
			return i, xerrors.Programmer("code: invoker does not expose command submission")
		}
		want := fmt.Sprintf("%x", offset+uint64(i))
		matched, err := w.RunCmdExpect(ctx, line, want, true, 2*time.Second)
		if err != nil {
			return i, err
		}
		if !matched {
			return i, xerrors.Protocol(int64(offset)+int64(i), line, "writecode: device did not echo accepted offset")
		}
	}
	return len(buf), nil
}
