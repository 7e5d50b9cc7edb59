package nv

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Child is one named entry of a Compound's definition.
type Child struct {
	Name string
	Val  Value
}

// Compound is an ordered, named list of children, either fixed-width or
// partial. A partial compound bails out of Read early on EOF, tolerating
// unset trailing children on Write; a non-partial compound enforces that
// the sum of child sizes does not exceed an explicit Width when Width>0.
type Compound struct {
	base
	Partial  bool
	Width    int
	children []Child
	bytes    int
}

// NewCompound builds a Compound from an ordered definition; the caller is
// expected to construct concrete child Values ahead of time (mirroring the
// reference implementation's per-group "definition()" factories).
func NewCompound(partial bool, width int, def []Child) *Compound {
	c := &Compound{Partial: partial, Width: width, children: def}
	for i := range c.children {
		c.children[i].Val.setParent(c)
	}
	return c
}

func (c *Compound) indexOf(name string) int {
	for i, ch := range c.children {
		if ch.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the direct child named name, or nil.
func (c *Compound) Find(name string) Value {
	if i := c.indexOf(name); i >= 0 {
		return c.children[i].Val
	}
	return nil
}

func (c *Compound) Read(r io.Reader) error {
	total := 0
	for _, ch := range c.children {
		if ch.Val.IsDisabled() {
			continue
		}
		if err := ch.Val.Read(r); err != nil {
			if c.Partial && err == io.EOF {
				break
			}
			if c.Partial && err == io.ErrUnexpectedEOF {
				break
			}
			return fmt.Errorf("nv: compound: reading %q: %w", ch.Name, err)
		}
		total += ch.Val.Bytes()
		if c.Width > 0 && total > c.Width {
			return fmt.Errorf("nv: compound: child sizes (%d) exceed declared width %d", total, c.Width)
		}
	}
	c.bytes = total
	c.set = true
	return nil
}

func (c *Compound) Write(w io.Writer) error {
	for _, ch := range c.children {
		if ch.Val.IsDisabled() {
			continue
		}
		if c.Partial && !ch.Val.IsSet() {
			// Partial compounds tolerate unset trailing children.
			break
		}
		if err := ch.Val.Write(w); err != nil {
			return fmt.Errorf("nv: compound: writing %q: %w", ch.Name, err)
		}
	}
	return nil
}

// Parse is not directly supported on compounds; use Get/Set on dotted
// child paths instead, matching the reference implementation's treatment
// of compound types.
func (c *Compound) Parse(text string) error {
	return fmt.Errorf("nv: compound values cannot be parsed directly; use Set on a dotted path")
}

func (c *Compound) ToString(level int, pretty bool) string {
	if !pretty {
		var parts []string
		for _, ch := range c.children {
			if ch.Val.IsDisabled() {
				continue
			}
			parts = append(parts, ch.Name+"="+ch.Val.ToString(0, false))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	indent := strings.Repeat("  ", level)
	var b strings.Builder
	b.WriteString("{\n")
	for _, ch := range c.children {
		if ch.Val.IsDisabled() {
			continue
		}
		fmt.Fprintf(&b, "%s  %s = %s\n", indent, ch.Name, ch.Val.ToString(level+1, true))
	}
	fmt.Fprintf(&b, "%s}", indent)
	return b.String()
}

func (c *Compound) Bytes() int {
	if c.bytes > 0 {
		return c.bytes
	}
	if c.Width > 0 {
		return c.Width
	}
	total := 0
	for _, ch := range c.children {
		if ch.Val.IsDisabled() {
			continue
		}
		total += ch.Val.Bytes()
	}
	return total
}

func (c *Compound) propagateDelta(delta int) {
	c.bytes += delta
	c.base.propagateDelta(delta)
}

// splitPath splits "a.b.c" into its first segment and remainder.
func splitPath(dotted string) (head, rest string) {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i], dotted[i+1:]
	}
	return dotted, ""
}

// Get resolves a dotted path against this compound, descending through
// nested compounds/arrays/lists/groups as needed.
func (c *Compound) Get(dotted string) (Value, error) {
	head, rest := splitPath(dotted)
	idx := c.indexOf(head)
	if idx < 0 {
		return nil, fmt.Errorf("nv: no such field %q", head)
	}
	child := c.children[idx].Val
	if rest == "" {
		return child, nil
	}
	getter, ok := child.(interface {
		Get(string) (Value, error)
	})
	if !ok {
		return nil, fmt.Errorf("nv: %q is a leaf value, cannot descend into %q", head, rest)
	}
	return getter.Get(rest)
}

// Set walks a dotted path and parses text into the target leaf. If the
// target is presently unset, Set refuses unless every preceding sibling in
// this compound's own child order has already been set — §4.G's
// contiguity rule, which keeps serialized buffers gap-free. A successful
// Set propagates its size delta up the parent chain via propagateDelta.
func (c *Compound) Set(dotted, text string) error {
	head, rest := splitPath(dotted)
	idx := c.indexOf(head)
	if idx < 0 {
		return fmt.Errorf("nv: no such field %q", head)
	}
	child := c.children[idx].Val

	if rest != "" {
		setter, ok := child.(interface {
			Set(string, string) error
		})
		if !ok {
			return fmt.Errorf("nv: %q is a leaf value, cannot descend into %q", head, rest)
		}
		return setter.Set(rest, text)
	}

	if !child.IsSet() {
		for i := 0; i < idx; i++ {
			if !c.children[i].Val.IsDisabled() && !c.children[i].Val.IsSet() {
				return fmt.Errorf("nv: cannot set %q before preceding field %q is set", head, c.children[i].Name)
			}
		}
	}

	before := child.Bytes()
	if err := child.Parse(text); err != nil {
		return err
	}
	after := child.Bytes()
	if delta := after - before; delta != 0 {
		c.propagateDelta(delta)
	}
	return nil
}

// intLiteral is a small helper Array/List implementations use when a
// dotted path segment names an index ("3" or "-1").
func intLiteral(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
