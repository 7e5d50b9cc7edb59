package rwx

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// BFCRam drives BFC's /read_memory, /write_memory and /system/diag
// unprivileged fallbacks (§4.D).
type BFCRam struct {
	Console    *ifacedrv.BFC
	Privileged bool
}

func NewBFCRam(console *ifacedrv.BFC) *BFCRam {
	return &BFCRam{Console: console, Privileged: console.Privileged()}
}

func (d *BFCRam) Capabilities() Caps { return Caps{Read: true, Write: true, Exec: true} }

func (d *BFCRam) ReadLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 1, MinChunk: 1, MaxChunk: 4096}
}
func (d *BFCRam) WriteLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 1, MinChunk: 1, MaxChunk: 256}
}

func (d *BFCRam) Init(ctx context.Context, offset, length uint64, write bool) error { return nil }
func (d *BFCRam) Cleanup(ctx context.Context) error                                 { return nil }

var gridLineRe = regexp.MustCompile(`^0x([0-9A-Fa-f]+):\s*(.+)$`)

// parseGridLine parses one line of the hex/ASCII (or, for some firmwares,
// decimal) memory grid: "0xADDR: b0 b1 b2 b3 ...". Column width decides the
// base: two-character tokens are hex, three-character tokens are decimal.
func parseGridLine(line string) (addr uint64, vals []byte, ok bool) {
	m := gridLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, nil, false
	}
	a, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, nil, false
	}
	fields := strings.Fields(m[2])
	if len(fields) == 0 {
		return 0, nil, false
	}
	base := 16
	if len(fields[0]) == 3 {
		base = 10
	}
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		// ASCII sidebar or similar trailing column breaks the byte grid;
		// stop at the first token that doesn't parse cleanly.
		v, err := strconv.ParseUint(f, base, 16)
		if err != nil {
			break
		}
		out = append(out, byte(v))
	}
	if len(out) == 0 {
		return 0, nil, false
	}
	return a, out, true
}

func (d *BFCRam) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	var cmd string
	if d.Privileged {
		cmd = fmt.Sprintf("/read_memory -s 4 -n %d 0x%x", len(buf), offset)
	} else {
		cmd = fmt.Sprintf("/system/diag readmem 0x%x %d", offset, len(buf))
	}
	if err := d.Console.RunCmd(ctx, cmd); err != nil {
		return 0, err
	}

	got := 0
	err := d.Console.ForeachLine(2*time.Second, 300*time.Millisecond, func(line string) bool {
		addr, vals, ok := parseGridLine(line)
		if !ok {
			return false
		}
		rel := int64(addr) - int64(offset)
		if rel < 0 || rel >= int64(len(buf)) {
			return false
		}
		n := copy(buf[rel:], vals)
		got += n
		return got >= len(buf)
	})
	if err != nil || got < len(buf) {
		return got, xerrors.Protocol(int64(offset), "", "bfc-ram: incomplete memory grid, got %d of %d bytes", got, len(buf))
	}
	return got, nil
}

func (d *BFCRam) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	if d.Privileged {
		var sb strings.Builder
		fmt.Fprintf(&sb, "/write_memory -s %d 0x%x", len(buf), offset)
		for _, b := range buf {
			fmt.Fprintf(&sb, " 0x%02x", b)
		}
		if err := d.Console.RunCmd(ctx, sb.String()); err != nil {
			return 0, err
		}
		return len(buf), nil
	}
	for i, b := range buf {
		cmd := fmt.Sprintf("/system/diag writemem 0x%x 0x%02x", offset+uint64(i), b)
		if err := d.Console.RunCmd(ctx, cmd); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// Exec invokes the on-device function at addr via "/call func -a 0x<addr>".
func (d *BFCRam) Exec(ctx context.Context, addr uint32) error {
	return d.Console.RunCmd(ctx, fmt.Sprintf("/call func -a 0x%x", addr))
}

// AsRAMWriter adapts this driver to ifacedrv.RAMWriter, so BFC.Escalate's
// last-resort path can write the privilege byte without ifacedrv importing
// rwx.
func (d *BFCRam) AsRAMWriter() ifacedrv.RAMWriter {
	return func(ctx context.Context, addr uint32, val byte) error {
		_, err := d.WriteChunk(ctx, uint64(addr), []byte{val})
		return err
	}
}
