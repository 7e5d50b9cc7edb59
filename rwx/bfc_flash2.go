package rwx

import (
	"context"
	"fmt"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// BFCFlash2 is the accelerated flash reader: it invokes the device's own
// read function directly via "/call func", arranging arguments per the
// function's declared args-mode, then reads the result out of the
// profile's RAM scratch buffer via BFCRam (§4.D).
type BFCFlash2 struct {
	Console *ifacedrv.BFC
	RAM     *BFCRam
	Version profile.Version
	Space   string

	readFn   profile.FuncDesc
	hasRead  bool
	buffer   uint32
	bufLen   uint32
}

func NewBFCFlash2(console *ifacedrv.BFC, ram *BFCRam, version profile.Version, space string) (*BFCFlash2, error) {
	fn, ok := version.FuncFor(space, profile.FuncRead)
	if !ok {
		return nil, xerrors.Programmer("bfc-flash2: profile has no read function descriptor for space %q", space)
	}
	if version.Buffer == 0 || version.BufLen == 0 {
		return nil, xerrors.Programmer("bfc-flash2: profile has no RAM scratch buffer for space %q", space)
	}
	return &BFCFlash2{
		Console: console, RAM: ram, Version: version, Space: space,
		readFn: fn, hasRead: true, buffer: version.Buffer, bufLen: version.BufLen,
	}, nil
}

func (d *BFCFlash2) Capabilities() Caps { return Caps{Read: true} }

func (d *BFCFlash2) ReadLimits() profile.RWXLimits {
	return profile.RWXLimits{Alignment: 1, MinChunk: 1, MaxChunk: d.bufLen}
}
func (d *BFCFlash2) WriteLimits() profile.RWXLimits { return profile.RWXLimits{} }

func (d *BFCFlash2) Init(ctx context.Context, offset, length uint64, write bool) error { return nil }
func (d *BFCFlash2) Cleanup(ctx context.Context) error                                 { return nil }

// callArgs renders the call arguments for fn's args-mode, given the target
// device offset and length and the RAM scratch buffer address.
func callArgs(fn profile.FuncDesc, bufAddr, offset, length uint32) ([]string, error) {
	switch fn.Mode {
	case profile.ArgsPtrBufOffLen:
		return []string{fmt.Sprintf("0x%x", bufAddr), fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", length)}, nil
	case profile.ArgsBufOffLen:
		return []string{fmt.Sprintf("0x%x", bufAddr), fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", length)}, nil
	case profile.ArgsOffBufLen:
		return []string{fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", bufAddr), fmt.Sprintf("0x%x", length)}, nil
	case profile.ArgsOffLen:
		return []string{fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", length)}, nil
	case profile.ArgsOffEnd:
		return []string{fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", offset+length)}, nil
	case profile.ArgsOffPartSize:
		return []string{fmt.Sprintf("0x%x", offset), fmt.Sprintf("0x%x", length)}, nil
	default:
		return nil, xerrors.Programmer("bfc-flash2: unsupported args-mode %s", fn.Mode)
	}
}

// applyPatches writes fn's patch words and returns a restore function that
// swaps each slot back to the word it displaced.
func (d *BFCFlash2) applyPatches(ctx context.Context) (func(context.Context), error) {
	original := make([]uint32, fn2PatchCount(d.readFn))
	for i := 0; i < fn2PatchCount(d.readFn); i++ {
		p := d.readFn.Patches[i]
		var buf [4]byte
		if _, err := d.RAM.ReadChunk(ctx, uint64(p.Addr), buf[:]); err != nil {
			return nil, err
		}
		original[i] = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		word := p.Word
		wb := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
		if _, err := d.RAM.WriteChunk(ctx, uint64(p.Addr), wb); err != nil {
			return nil, err
		}
	}
	restore := func(ctx context.Context) {
		for i := 0; i < fn2PatchCount(d.readFn); i++ {
			p := d.readFn.Patches[i]
			wb := []byte{byte(original[i] >> 24), byte(original[i] >> 16), byte(original[i] >> 8), byte(original[i])}
			d.RAM.WriteChunk(ctx, uint64(p.Addr), wb)
		}
	}
	return restore, nil
}

func fn2PatchCount(fn profile.FuncDesc) int { return fn.NPatch }

func (d *BFCFlash2) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	restore, err := d.applyPatches(ctx)
	if err != nil {
		return 0, err
	}
	defer restore(ctx)

	args, err := callArgs(d.readFn, d.buffer, uint32(offset), uint32(len(buf)))
	if err != nil {
		return 0, err
	}
	cmd := fmt.Sprintf("/call func -a 0x%x", d.readFn.Addr)
	for _, a := range args {
		cmd += " " + a
	}
	if err := d.Console.RunCmd(ctx, cmd); err != nil {
		return 0, err
	}
	return d.RAM.ReadChunk(ctx, uint64(d.buffer), buf)
}

func (d *BFCFlash2) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	return 0, xerrors.Programmer("bfc-flash2: write is not supported")
}
