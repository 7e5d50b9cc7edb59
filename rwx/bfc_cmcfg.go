package rwx

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// DocsisTLV is one parsed type-length-value record from a cfg_hex_show
// dump.
type DocsisTLV struct {
	Type  byte
	Value []byte
}

// BFCCmCfg is the "special"-capability driver running
// /docsis_ctl/cfg_hex_show and parsing the dumped DOCSIS TLV config
// (§4.D). It has no read/write chunk model of its own: Dump is the whole
// operation.
type BFCCmCfg struct {
	Console *ifacedrv.BFC
}

func NewBFCCmCfg(console *ifacedrv.BFC) *BFCCmCfg { return &BFCCmCfg{Console: console} }

func (d *BFCCmCfg) Capabilities() Caps { return Caps{Special: true} }

func (d *BFCCmCfg) ReadLimits() profile.RWXLimits  { return profile.RWXLimits{} }
func (d *BFCCmCfg) WriteLimits() profile.RWXLimits { return profile.RWXLimits{} }

func (d *BFCCmCfg) Init(ctx context.Context, offset, length uint64, write bool) error { return nil }
func (d *BFCCmCfg) Cleanup(ctx context.Context) error                                 { return nil }

func (d *BFCCmCfg) ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	return 0, xerrors.Programmer("bfc-cmcfg: use Dump, not chunked read")
}
func (d *BFCCmCfg) WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error) {
	return 0, xerrors.Programmer("bfc-cmcfg: write is not supported")
}

// Dump runs cfg_hex_show and returns the raw config bytes plus its TLV
// decomposition.
func (d *BFCCmCfg) Dump(ctx context.Context) ([]byte, []DocsisTLV, error) {
	if err := d.Console.RunCmd(ctx, "/docsis_ctl/cfg_hex_show"); err != nil {
		return nil, nil, err
	}
	var hexLines []string
	err := d.Console.ForeachLine(5*time.Second, 300*time.Millisecond, func(line string) bool {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return len(hexLines) > 0
		}
		hexLines = append(hexLines, trimmed)
		return false
	})
	if err != nil && len(hexLines) == 0 {
		return nil, nil, xerrors.Protocol(0, "", "bfc-cmcfg: cfg_hex_show produced no output")
	}

	raw, decErr := hex.DecodeString(strings.Join(hexLines, ""))
	if decErr != nil {
		return nil, nil, xerrors.ProtocolWrap(decErr, 0, strings.Join(hexLines, ""))
	}
	return raw, parseDocsisTLVs(raw), nil
}

// parseDocsisTLVs walks a DOCSIS config's outer TLV stream: u8 type · u8
// length · value. Nested (vendor-specific, 43/11) TLVs are left as opaque
// value bytes — decoding their sub-TLV grammar is out of scope.
func parseDocsisTLVs(raw []byte) []DocsisTLV {
	var out []DocsisTLV
	for i := 0; i+2 <= len(raw); {
		typ := raw[i]
		length := int(raw[i+1])
		i += 2
		if i+length > len(raw) {
			break
		}
		out = append(out, DocsisTLV{Type: typ, Value: append([]byte{}, raw[i:i+length]...)})
		i += length
	}
	return out
}
