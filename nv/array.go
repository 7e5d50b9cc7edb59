package nv

import (
	"fmt"
	"io"
	"strings"
)

// Factory builds a fresh zeroed Value for one array/list slot.
type Factory func() Value

// IsEndFunc inspects a just-read element and reports whether it is the
// sentinel that should stop further reads. The sentinel element itself is
// kept; subsequent slots are omitted.
type IsEndFunc func(Value) bool

// Array is a fixed-count array of T, or one that reads until IsEnd accepts
// a just-parsed element.
type Array struct {
	base
	New   Factory
	Count int // 0 with IsEnd set means "until predicate"
	IsEnd IsEndFunc

	Elems []Value
}

func NewArray(newFn Factory, count int, isEnd IsEndFunc) *Array {
	return &Array{New: newFn, Count: count, IsEnd: isEnd}
}

func (a *Array) Read(r io.Reader) error {
	a.Elems = nil
	if a.IsEnd != nil {
		for {
			e := a.New()
			e.setParent(a)
			if err := e.Read(r); err != nil {
				return fmt.Errorf("nv: array: reading element %d: %w", len(a.Elems), err)
			}
			a.Elems = append(a.Elems, e)
			if a.IsEnd(e) {
				break
			}
		}
		a.set = true
		return nil
	}
	for i := 0; i < a.Count; i++ {
		e := a.New()
		e.setParent(a)
		if err := e.Read(r); err != nil {
			return fmt.Errorf("nv: array: reading element %d: %w", i, err)
		}
		a.Elems = append(a.Elems, e)
	}
	a.set = true
	return nil
}

func (a *Array) Write(w io.Writer) error {
	for i, e := range a.Elems {
		if err := e.Write(w); err != nil {
			return fmt.Errorf("nv: array: writing element %d: %w", i, err)
		}
	}
	return nil
}

func (a *Array) Parse(text string) error {
	return fmt.Errorf("nv: array values cannot be parsed directly; use Set on an index")
}

func (a *Array) ToString(level int, pretty bool) string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = e.ToString(level, pretty)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *Array) Bytes() int {
	total := 0
	for _, e := range a.Elems {
		total += e.Bytes()
	}
	return total
}

func (a *Array) propagateDelta(delta int) { a.base.propagateDelta(delta) }

func (a *Array) Get(dotted string) (Value, error) {
	head, rest := splitPath(dotted)
	idx, ok := intLiteral(head)
	if !ok || idx < 0 || idx >= len(a.Elems) {
		return nil, fmt.Errorf("nv: array index %q out of range", head)
	}
	if rest == "" {
		return a.Elems[idx], nil
	}
	getter, ok := a.Elems[idx].(interface{ Get(string) (Value, error) })
	if !ok {
		return nil, fmt.Errorf("nv: array element %d is a leaf value", idx)
	}
	return getter.Get(rest)
}

func (a *Array) Set(dotted, text string) error {
	head, rest := splitPath(dotted)
	idx, ok := intLiteral(head)
	if !ok || idx < 0 || idx >= len(a.Elems) {
		return fmt.Errorf("nv: array index %q out of range", head)
	}
	if rest != "" {
		setter, ok := a.Elems[idx].(interface{ Set(string, string) error })
		if !ok {
			return fmt.Errorf("nv: array element %d is a leaf value", idx)
		}
		return setter.Set(rest, text)
	}
	before := a.Elems[idx].Bytes()
	if err := a.Elems[idx].Parse(text); err != nil {
		return err
	}
	if delta := a.Elems[idx].Bytes() - before; delta != 0 {
		a.propagateDelta(delta)
	}
	return nil
}

// List is a length-prefixed list of T, counted by a u8 or u16 field.
type List struct {
	base
	New        Factory
	CountWidth int // 1 or 2

	Elems []Value
}

func NewList(newFn Factory, countWidth int) *List {
	return &List{New: newFn, CountWidth: countWidth}
}

func (l *List) Read(r io.Reader) error {
	cnt := NewInt(U16)
	if l.CountWidth == 1 {
		cnt = NewInt(U8)
	}
	if err := cnt.Read(r); err != nil {
		return err
	}
	l.Elems = nil
	for i := 0; i < int(cnt.Val); i++ {
		e := l.New()
		e.setParent(l)
		if err := e.Read(r); err != nil {
			return fmt.Errorf("nv: list: reading element %d: %w", i, err)
		}
		l.Elems = append(l.Elems, e)
	}
	l.set = true
	return nil
}

func (l *List) Write(w io.Writer) error {
	cnt := NewInt(U16)
	if l.CountWidth == 1 {
		cnt = NewInt(U8)
	}
	cnt.Val = int64(len(l.Elems))
	if err := cnt.Write(w); err != nil {
		return err
	}
	for i, e := range l.Elems {
		if err := e.Write(w); err != nil {
			return fmt.Errorf("nv: list: writing element %d: %w", i, err)
		}
	}
	return nil
}

func (l *List) Parse(text string) error {
	return fmt.Errorf("nv: list values cannot be parsed directly; use Set on an index")
}

func (l *List) ToString(level int, pretty bool) string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = e.ToString(level, pretty)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) Bytes() int {
	total := l.CountWidth
	for _, e := range l.Elems {
		total += e.Bytes()
	}
	return total
}

func (l *List) propagateDelta(delta int) { l.base.propagateDelta(delta) }

// Set treats index -1 as append: a new zeroed element is created, parsed,
// and appended, growing the list's serialized length by the new element's
// size plus nothing else (the count field's own width is constant).
func (l *List) Set(dotted, text string) error {
	head, rest := splitPath(dotted)
	idx, ok := intLiteral(head)
	if !ok {
		return fmt.Errorf("nv: invalid list index %q", head)
	}
	if idx == -1 {
		if rest != "" {
			return fmt.Errorf("nv: cannot descend into a freshly appended element's %q in the same call", rest)
		}
		e := l.New()
		e.setParent(l)
		if err := e.Parse(text); err != nil {
			return err
		}
		l.Elems = append(l.Elems, e)
		l.propagateDelta(e.Bytes())
		return nil
	}
	if idx < 0 || idx >= len(l.Elems) {
		return fmt.Errorf("nv: list index %d out of range", idx)
	}
	if rest != "" {
		setter, ok := l.Elems[idx].(interface{ Set(string, string) error })
		if !ok {
			return fmt.Errorf("nv: list element %d is a leaf value", idx)
		}
		return setter.Set(rest, text)
	}
	before := l.Elems[idx].Bytes()
	if err := l.Elems[idx].Parse(text); err != nil {
		return err
	}
	if delta := l.Elems[idx].Bytes() - before; delta != 0 {
		l.propagateDelta(delta)
	}
	return nil
}

func (l *List) Get(dotted string) (Value, error) {
	head, rest := splitPath(dotted)
	idx, ok := intLiteral(head)
	if !ok || idx < 0 || idx >= len(l.Elems) {
		return nil, fmt.Errorf("nv: list index %q out of range", head)
	}
	if rest == "" {
		return l.Elems[idx], nil
	}
	getter, ok := l.Elems[idx].(interface{ Get(string) (Value, error) })
	if !ok {
		return nil, fmt.Errorf("nv: list element %d is a leaf value", idx)
	}
	return getter.Get(rest)
}
