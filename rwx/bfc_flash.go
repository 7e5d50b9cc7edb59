package rwx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// BFCFlash opens a named partition and reads/writes it relative to its
// base offset (§4.D).
type BFCFlash struct {
	Console     *ifacedrv.BFC
	Partition   profile.Partition
	ReadDirect  bool
	ReinitRetry bool

	opened bool
}

func NewBFCFlash(console *ifacedrv.BFC, part profile.Partition, opts profile.Options) *BFCFlash {
	return &BFCFlash{
		Console:     console,
		Partition:   part,
		ReadDirect:  opts.FlashReadDirect,
		ReinitRetry: opts.FlashReinitOnRetry,
	}
}

func (d *BFCFlash) Capabilities() Caps { return Caps{Read: true, Write: true} }

func (d *BFCFlash) ReadLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 1, MinChunk: 1, MaxChunk: 4096}
}
func (d *BFCFlash) WriteLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 1, MinChunk: 1, MaxChunk: 1}
}

func (d *BFCFlash) Init(ctx context.Context, offset, length uint64, write bool) error {
	matched, err := d.Console.RunCmdExpect(ctx, "/flash/open "+d.Partition.Name, ">", true, time.Second)
	if err != nil {
		return err
	}
	if !matched {
		return xerrors.Interface(d.Console.Stream.RecentLines(), "bfc-flash: /flash/open %s did not return a prompt", d.Partition.Name)
	}
	d.opened = true

	// Retry once on "opened twice" by deinit+init, per the teacher's device
	// lifecycle pattern of Reset-then-retry on a busy handle.
	reopened := false
	err = d.Console.ForeachLine(500*time.Millisecond, 200*time.Millisecond, func(line string) bool {
		if strings.Contains(line, "opened twice") {
			reopened = true
			return true
		}
		return false
	})
	if err == nil && reopened && d.ReinitRetry {
		d.Console.RunCmd(ctx, "/flash/deinit")
		d.Console.RunCmd(ctx, "/flash/init")
		d.Console.RunCmd(ctx, "/flash/open "+d.Partition.Name)
	}
	return nil
}

func (d *BFCFlash) relOffset(offset uint64) uint64 {
	return offset - uint64(d.Partition.Offset)
}

func (d *BFCFlash) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	rel := d.relOffset(offset)
	var cmd string
	if d.ReadDirect {
		cmd = fmt.Sprintf("/flash/readDirect %d %d", len(buf), rel)
	} else {
		cmd = fmt.Sprintf("/flash/read 4 %d %d", len(buf), rel)
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
		r := int64(addr) - int64(rel)
		if r < 0 || r >= int64(len(buf)) {
			return false
		}
		got += copy(buf[r:], vals)
		return got >= len(buf)
	})
	if err != nil || got < len(buf) {
		return got, xerrors.Protocol(int64(offset), "", "bfc-flash: incomplete read, got %d of %d bytes", got, len(buf))
	}
	return got, nil
}

func (d *BFCFlash) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	rel := d.relOffset(offset)
	for i, b := range buf {
		cmd := fmt.Sprintf("/flash/write %d 0x%x 0x%02x", 1, rel+uint64(i), b)
		if err := d.Console.RunCmd(ctx, cmd); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

func (d *BFCFlash) Cleanup(ctx context.Context) error {
	if !d.opened {
		return nil
	}
	d.opened = false
	return d.Console.RunCmd(ctx, "/flash/close")
}
