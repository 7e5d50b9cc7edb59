package profile

import "fmt"

// Catalog is the process-wide, read-only profile registry. It is
// populated exactly once at startup (mirroring the teacher's package-level
// opcode tables in vm/bytecode.go, here turned into a runtime-built table
// of device profiles instead of instructions) and never mutated again.
type Catalog struct {
	byName map[string]*Profile
	order  []string
}

// NewCatalog builds and validates a Catalog from profiles. It panics on an
// invariant violation, matching the teacher's compile-time-table
// construction style: a malformed built-in profile table is a programmer
// error, not a runtime condition callers should recover from.
func NewCatalog(profiles ...*Profile) *Catalog {
	c := &Catalog{byName: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.validate(); err != nil {
			panic(err)
		}
		if _, dup := c.byName[p.Name]; dup {
			panic(fmt.Sprintf("profile: duplicate profile name %q", p.Name))
		}
		c.byName[p.Name] = p
		c.order = append(c.order, p.Name)
	}
	return c
}

// Get looks a profile up by short name.
func (c *Catalog) Get(name string) (*Profile, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// All returns every registered profile in registration order.
func (c *Catalog) All() []*Profile {
	out := make([]*Profile, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byName[n])
	}
	return out
}

// MagicCandidate is one (profile, version) pair whose version declares a
// magic.
type MagicCandidate struct {
	Profile *Profile
	Version Version
}

// MagicCandidates returns every (profile, version, magic) triple whose
// version interface matches iface, ordered ascending by magic address and,
// for equal addresses, longer magics before shorter ones — the order
// §4.B's profile auto-detection requires to minimise the risk of reading
// into an unmapped range.
func (c *Catalog) MagicCandidates(iface string) []MagicCandidate {
	var out []MagicCandidate
	for _, name := range c.order {
		p := c.byName[name]
		for _, v := range p.Versions {
			if v.Interface != iface || len(v.Magic.Data) == 0 {
				continue
			}
			out = append(out, MagicCandidate{Profile: p, Version: v})
		}
	}
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && less(out[j], out[j-1]) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func less(a, b MagicCandidate) bool {
	if a.Version.Magic.Addr != b.Version.Magic.Addr {
		return a.Version.Magic.Addr < b.Version.Magic.Addr
	}
	return len(a.Version.Magic.Data) > len(b.Version.Magic.Data)
}
