package nv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Format selects which settings-container dialect a Group's body layout is
// a function of, alongside (magic, version).
type Format int

const (
	FormatUnknown Format = iota
	FormatGWSettings
	FormatPermDyn
	FormatBoltEnv
)

// GroupDef builds the concrete body (a Compound, typically) for one
// (magic, version) pair. Registered per format via the registry package.
type GroupDef func(version uint16) *Compound

// Group is a top-level NV unit framed as
// u16 byte_length · 4-byte magic · u16 version · body.
type Group struct {
	base
	Magic   [4]byte
	Version uint16
	Body    *Compound
	Extra   []byte // trailing residue when the definition ends early
	declLen uint16
}

// lookupFn is installed by the registry package to avoid an import cycle;
// nv itself never imports nv/registry.
var lookupFn func(format Format, magic [4]byte, version uint16) (GroupDef, bool)

// SetLookup installs the registry's lookup function. Called once by
// registry.Install during process startup.
func SetLookup(fn func(format Format, magic [4]byte, version uint16) (GroupDef, bool)) {
	lookupFn = fn
}

// ReadGroup reads one framed group from r. If the body read fails and
// format is FormatUnknown, the group downgrades to a generic opaque-body
// group and retries from the post-header position, per §4.G.
func ReadGroup(r io.Reader, format Format) (*Group, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	g := &Group{declLen: binary.BigEndian.Uint16(hdr[0:2])}
	copy(g.Magic[:], hdr[2:6])
	g.Version = binary.BigEndian.Uint16(hdr[6:8])

	if g.declLen < 8 {
		return nil, fmt.Errorf("nv: group %q declares length %d smaller than its own 8 byte header", g.Magic, g.declLen)
	}
	bodyLen := int(g.declLen) - 8

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("nv: group %q: reading %d body bytes: %w", g.Magic, bodyLen, err)
	}

	if err := g.readBody(body, format); err != nil {
		return nil, err
	}
	g.set = true
	return g, nil
}

func (g *Group) readBody(body []byte, format Format) error {
	var def GroupDef
	if lookupFn != nil {
		if d, ok := lookupFn(format, g.Magic, g.Version); ok {
			def = d
		}
	}
	if def == nil {
		g.Body = genericBody(len(body))
		return readRemainder(g, body)
	}

	g.Body = def(g.Version)
	g.Body.setParent(g)
	br := bytes.NewReader(body)
	if err := g.Body.Read(br); err != nil {
		if format == FormatUnknown {
			g.Body = genericBody(len(body))
			return readRemainder(g, body)
		}
		return fmt.Errorf("nv: group %q v%d: %w", g.Magic, g.Version, err)
	}
	consumed := len(body) - br.Len()
	g.Extra = append([]byte{}, body[consumed:]...)
	return nil
}

func readRemainder(g *Group, body []byte) error {
	br := bytes.NewReader(body)
	return g.Body.Read(br)
}

func genericBody(width int) *Compound {
	return NewCompound(false, width, []Child{{Name: "_data", Val: NewData(width)}})
}

func (g *Group) Write(w io.Writer) error {
	var body bytes.Buffer
	if err := g.Body.Write(&body); err != nil {
		return err
	}
	body.Write(g.Extra)

	total := 8 + body.Len()
	var hdr [8]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(total))
	copy(hdr[2:6], g.Magic[:])
	binary.BigEndian.PutUint16(hdr[6:8], g.Version)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func (g *Group) Read(r io.Reader) error {
	got, err := ReadGroup(r, FormatUnknown)
	if err != nil {
		return err
	}
	parent := g.parent
	*g = *got
	g.parent = parent
	return nil
}

func (g *Group) Parse(text string) error {
	return fmt.Errorf("nv: group values cannot be parsed directly; use Set on a dotted path")
}

func (g *Group) ToString(level int, pretty bool) string {
	return fmt.Sprintf("%s v%d %s", g.Magic, g.Version, g.Body.ToString(level, pretty))
}

// Bytes returns the group's total declared size: 8 byte header plus body.
func (g *Group) Bytes() int { return 8 + g.Body.Bytes() + len(g.Extra) }

func (g *Group) propagateDelta(delta int) { g.base.propagateDelta(delta) }

func (g *Group) Get(dotted string) (Value, error) { return g.Body.Get(dotted) }
func (g *Group) Set(dotted, text string) error     { return g.Body.Set(dotted, text) }
