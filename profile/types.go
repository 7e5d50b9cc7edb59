// Package profile implements the immutable, process-wide profile and
// address-space model (§3/§4.C): per-device memory maps, partitions,
// per-interface function descriptors and their calling conventions, MIPS
// code-patch slots, magic markers and default encryption keys.
package profile

import "fmt"

// ArgsMode enumerates the argument conventions an on-device function can
// use, mirroring the original bcm2_read_func_mode enum plus the additional
// conventions spec.md §3 requires for write/erase/open/close.
type ArgsMode int

const (
	// ArgsPtrBufOffLen is (ptr_to_buffer, offset, length).
	ArgsPtrBufOffLen ArgsMode = iota
	// ArgsBufOffLen is (buffer, offset, length).
	ArgsBufOffLen
	// ArgsOffBufLen is (offset, buffer, length).
	ArgsOffBufLen
	// ArgsOffLen is (offset, length).
	ArgsOffLen
	// ArgsOffEnd is (offset, end).
	ArgsOffEnd
	// ArgsOffPartSize is (offset, partition_size).
	ArgsOffPartSize
)

func (m ArgsMode) String() string {
	switch m {
	case ArgsPtrBufOffLen:
		return "ptr_buf_off_len"
	case ArgsBufOffLen:
		return "buf_off_len"
	case ArgsOffBufLen:
		return "off_buf_len"
	case ArgsOffLen:
		return "off_len"
	case ArgsOffEnd:
		return "off_end"
	case ArgsOffPartSize:
		return "off_part_size"
	default:
		return "unknown"
	}
}

// Kind is the on-device function a FuncDesc describes.
type Kind int

const (
	FuncRead Kind = iota
	FuncWrite
	FuncErase
	FuncOpen
	FuncClose
)

// MaxPatches is the number of code-patch slots a FuncDesc carries (matches
// the original's BCM2_PATCH_NUM).
const MaxPatches = 4

// Patch is a (address, replacement_word) pair applied just before a
// function is invoked and reverted afterwards by swapping the slot with the
// word it displaced — see mipsgen.Apply, which implements the swap.
type Patch struct {
	Addr uint32
	Word uint32
}

// FuncDesc describes one on-device function: its address, calling
// convention, return-value convention and patch slots.
type FuncDesc struct {
	Kind    Kind
	Addr    uint32
	Mode    ArgsMode
	RetConv string // free-form description of how the return value is read
	Patches [MaxPatches]Patch
	NPatch  int
}

// Partition is a named byte range within an address Space.
type Partition struct {
	Name    string
	AltName string
	Offset  uint32
	Length  uint32 // 0 = unknown until header is read
}

// Space is an address space: ram, flash, nvram, ... Either memory-mapped
// (IsRAM) or driver-backed, reachable only through FuncDesc entries of a
// Version.
type Space struct {
	Name       string
	IsRAM      bool
	MinAddr    uint32
	Size       uint32 // 0 = open-ended
	Alignment  uint32
	Partitions []Partition
}

// FindPartition looks a partition up by name or alt name.
func (s *Space) FindPartition(name string) (*Partition, bool) {
	for i := range s.Partitions {
		p := &s.Partitions[i]
		if p.Name == name || (p.AltName != "" && p.AltName == name) {
			return p, true
		}
	}
	return nil, false
}

// validate checks the invariants of §3: alignment, non-overlap, containment
// and name uniqueness within the space.
func (s *Space) validate() error {
	seen := make(map[string]bool, len(s.Partitions))
	align := s.Alignment
	if align == 0 {
		align = 1
	}
	type byteRange struct{ lo, hi uint32 }
	var ranges []byteRange
	for _, p := range s.Partitions {
		if seen[p.Name] {
			return fmt.Errorf("profile: duplicate partition name %q in space %q", p.Name, s.Name)
		}
		seen[p.Name] = true
		if p.Offset%align != 0 {
			return fmt.Errorf("profile: partition %q offset 0x%x not aligned to %d in space %q", p.Name, p.Offset, align, s.Name)
		}
		if p.Length == 0 {
			continue // size unknown until header is read
		}
		if s.Size != 0 && uint64(p.Offset)+uint64(p.Length) > uint64(s.Size) {
			return fmt.Errorf("profile: partition %q exceeds space %q bounds", p.Name, s.Name)
		}
		ranges = append(ranges, byteRange{p.Offset, p.Offset + p.Length})
	}
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].lo < ranges[j].hi && ranges[j].lo < ranges[i].hi {
				return fmt.Errorf("profile: overlapping partitions in space %q", s.Name)
			}
		}
	}
	return nil
}

// RWXLimits are the per-operation (alignment, min_chunk, max_chunk) a
// driver declares for read and write, independently.
type RWXLimits struct {
	Alignment uint32
	MinChunk  uint32
	MaxChunk  uint32
}

// Magic is a short byte signature at a known RAM address used to
// fingerprint a firmware build (§4.B profile/version auto-detection).
type Magic struct {
	Addr uint32
	Data []byte
}

// Options holds the typed §6 configuration knobs. Unknown is a plain map
// for keys without a typed field; no code in this module fills it.
type Options struct {
	SuPassword          string
	ConthreadInstance   uint32
	HasConthreadInst    bool
	ConthreadPrivOff    uint32
	FlashReadDirect     bool
	FlashReinitOnRetry  bool
	Unknown             map[string]string
}

// Version is a profile entry keyed by (interface-id, version-name). A
// version with an empty Name is the default for its Interface; named
// versions inherit zero-valued fields from the default (see Catalog.Resolve).
type Version struct {
	Interface string // "bldr", "bfc", "bfc-telnet"
	Name      string

	Magic Magic

	LoadAddr uint32
	Buffer   uint32
	BufLen   uint32
	Printf   uint32
	Scanf    uint32
	Sscanf   uint32
	GetLine  uint32
	RWCode   uint32

	// Funcs is keyed by space name; each space may declare up to one
	// FuncDesc per Kind.
	Funcs map[string][]FuncDesc

	Options Options
}

// FuncFor looks up the function descriptor of the given Kind declared for
// space, if any.
func (v *Version) FuncFor(space string, kind Kind) (FuncDesc, bool) {
	for _, f := range v.Funcs[space] {
		if f.Kind == kind {
			return f, true
		}
	}
	return FuncDesc{}, false
}

// merge returns a copy of v with every zero-valued scalar field filled in
// from def (the empty-name default version for the same interface).
func (v Version) merge(def Version) Version {
	if v.LoadAddr == 0 {
		v.LoadAddr = def.LoadAddr
	}
	if v.Buffer == 0 {
		v.Buffer = def.Buffer
	}
	if v.BufLen == 0 {
		v.BufLen = def.BufLen
	}
	if v.Printf == 0 {
		v.Printf = def.Printf
	}
	if v.Scanf == 0 {
		v.Scanf = def.Scanf
	}
	if v.Sscanf == 0 {
		v.Sscanf = def.Sscanf
	}
	if v.GetLine == 0 {
		v.GetLine = def.GetLine
	}
	if v.RWCode == 0 {
		v.RWCode = def.RWCode
	}
	if v.Funcs == nil {
		v.Funcs = def.Funcs
	}
	if v.Options.SuPassword == "" {
		v.Options.SuPassword = def.Options.SuPassword
	}
	if !v.Options.HasConthreadInst && def.Options.HasConthreadInst {
		v.Options.ConthreadInstance = def.Options.ConthreadInstance
		v.Options.HasConthreadInst = true
		v.Options.ConthreadPrivOff = def.Options.ConthreadPrivOff
	}
	return v
}

// EncMode is one of the seven cipher configurations a profile may apply to
// its settings container (§3/§4.F).
type EncMode int

const (
	EncNone EncMode = iota
	EncAES256ECB
	EncAES128CBC
	EncDESECB
	Enc3DESECB
	EncXOR
	EncMotorola
)

// PaddingMode selects the framing padding policy (§4.F).
type PaddingMode int

const (
	PadNone PaddingMode = iota
	PadZero
	PadPKCS7
	PadANSIX923
	PadANSILike
	PadFullZeroBlock
	PadFullOneBlock
)

// ConfigFlags are the per-profile settings-container framing bits §4.H
// switches on.
type ConfigFlags struct {
	Encryption       EncMode
	Padding          PaddingMode
	PadOptional      bool // BCM2_CFG_FMT_GWS_PAD_OPTIONAL
	LengthPrefix     bool
	ContentLengthHdr bool
	FullEnc          bool // checksum is inside the encrypted region
}

// KDF derives a cipher key from a password; nil means no KDF is defined and
// only explicit/default keys apply.
type KDF func(password string, keyLen int) []byte

// Profile is the immutable, process-wide registry entry for one device
// family.
type Profile struct {
	Name         string
	Pretty       string
	Arch         string
	BaudRate     int
	PSSignature  uint16
	BLSignature  uint16
	Kseg1Mask    uint32
	Flags        ConfigFlags
	MD5Key       string
	DefaultKeys  [][]byte
	KDF          KDF
	Spaces       map[string]*Space
	Versions     []Version // keyed by (Interface, Name) at lookup time
}

// Space looks a named address space up.
func (p *Profile) Space(name string) (*Space, bool) {
	s, ok := p.Spaces[name]
	return s, ok
}

// Resolve returns the named version merged onto the interface's default
// (empty-name) version. An empty name returns the default itself.
func (p *Profile) Resolve(iface, name string) (Version, bool) {
	var def Version
	haveDef := false
	for _, v := range p.Versions {
		if v.Interface == iface && v.Name == "" {
			def = v
			haveDef = true
			break
		}
	}
	if name == "" {
		return def, haveDef
	}
	for _, v := range p.Versions {
		if v.Interface == iface && v.Name == name {
			if haveDef {
				return v.merge(def), true
			}
			return v, true
		}
	}
	return Version{}, false
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: name is required")
	}
	for _, s := range p.Spaces {
		if err := s.validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return nil
}
