// Package nv implements the recursive, self-describing NV value model
// (§3/§4.G): scalars, strings in six flavours, arrays, lists, bitmasks,
// enums, compounds, and versioned groups, all behind one uniform
// interface with dotted-path get/set.
package nv

import "io"

// Value is the interface every node of the tree implements.
type Value interface {
	// Read consumes this value's wire representation from r.
	Read(r io.Reader) error
	// Write emits this value's wire representation to w.
	Write(w io.Writer) error
	// Parse sets this value from its textual representation.
	Parse(text string) error
	// ToString renders the value; pretty enables multi-line, indented
	// output for compounds/groups (level is the starting indent depth).
	ToString(level int, pretty bool) string
	// Bytes returns this value's current or minimum-required wire size.
	Bytes() int
	// IsSet reports whether this value has been read, parsed, or set.
	IsSet() bool
	// IsDisabled reports whether this value is skipped by its parent's
	// read/write/iteration (compound children only; always false for a
	// value with no parent that declared it disabled).
	IsDisabled() bool
	// Parent is the non-owning pointer used to cascade size changes
	// during Set; nil for a tree root.
	Parent() Value
	setParent(p Value)
	// propagateDelta is called by a child whose serialized size changed
	// by delta bytes, so the parent (if a Compound) can recompute its own
	// cached byte count without a full re-serialize.
	propagateDelta(delta int)
}

// base is embedded by every concrete Value and implements the bookkeeping
// common to all of them: the set/disabled flags and the parent pointer.
type base struct {
	set      bool
	disabled bool
	parent   Value
}

func (b *base) IsSet() bool       { return b.set }
func (b *base) IsDisabled() bool  { return b.disabled }
func (b *base) Parent() Value     { return b.parent }
func (b *base) setParent(p Value) { b.parent = p }
func (b *base) propagateDelta(delta int) {
	if b.parent != nil {
		b.parent.propagateDelta(delta)
	}
}

// Disable marks v as disabled; a disabled compound child is skipped by
// Compound.Read/Write/iteration.
func Disable(v Value) {
	if d, ok := v.(interface{ setDisabled(bool) }); ok {
		d.setDisabled(true)
	}
}

func (b *base) setDisabled(v bool) { b.disabled = v }
