// Package registry is the process-wide group registry (§4.G/§9's "group
// registry as a value map"): a magic -> definition map populated exactly
// once at startup, read-only thereafter, with no global mutable state
// beyond that one registration pass.
package registry

import (
	"fmt"
	"sync"

	"github.com/brcm33xx/bcmhost/nv"
)

type key struct {
	format  nv.Format
	magic   [4]byte
	version uint16 // 0 means "any version", checked last
}

// Registry owns the (format, magic, version) -> GroupDef map for every
// settings-container format.
type Registry struct {
	mu  sync.RWMutex
	def map[key]nv.GroupDef
}

// New builds an empty registry; the format is part of each Register key.
func New() *Registry { return &Registry{def: make(map[key]nv.GroupDef)} }

// Register associates magic (and, optionally, a specific version — 0
// matches any version not otherwise registered) with a GroupDef factory.
// Called exactly once per (format, magic, version) by the module owning
// the concrete group type; a duplicate registration panics.
func (r *Registry) Register(format nv.Format, magic [4]byte, version uint16, def nv.GroupDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{format, magic, version}
	if _, dup := r.def[k]; dup {
		panic(fmt.Sprintf("nv/registry: duplicate registration for magic %q version %d", magic, version))
	}
	r.def[k] = def
}

// Lookup finds the most specific definition for (format, magic, version):
// an exact version match first, then the any-version (0) entry.
func (r *Registry) Lookup(format nv.Format, magic [4]byte, version uint16) (nv.GroupDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.def[key{format, magic, version}]; ok {
		return d, true
	}
	if d, ok := r.def[key{format, magic, 0}]; ok {
		return d, true
	}
	return nil, false
}

// Install wires r into nv.ReadGroup's lookup hook. Call once at startup
// after every Register call has been made.
func Install(r *Registry) {
	nv.SetLookup(r.Lookup)
}
