package nv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// PrefixKind is the length-prefix flavour a String carries on the wire.
type PrefixKind int

const (
	PrefixNone PrefixKind = iota
	PrefixU8
	PrefixU16
)

// StringFlags is the flag triple describing one of the six string
// flavours §3 lists: a prefix kind, a fixed width (0 = not fixed-width:
// the length comes from the prefix, or from a NUL terminator when there is
// no prefix), and whether a prefixed variable-width string is written with
// a NUL terminator. RequiresNUL has no effect on fixed-width strings, which
// carry a NUL only when the value is shorter than the width.
type StringFlags struct {
	Prefix             PrefixKind
	FixedWidth         int
	RequiresNUL        bool
	SizeIncludesPrefix bool
}

// String is an NV text value in one of the six flavours StringFlags
// describes.
type String struct {
	base
	Flags StringFlags
	Val   string
}

func NewString(flags StringFlags) *String { return &String{Flags: flags} }

func (s *String) prefixLen() int {
	switch s.Flags.Prefix {
	case PrefixU8:
		return 1
	case PrefixU16:
		return 2
	default:
		return 0
	}
}

func (s *String) Read(r io.Reader) error {
	n := -1
	if s.Flags.Prefix != PrefixNone {
		pbuf := make([]byte, s.prefixLen())
		if _, err := io.ReadFull(r, pbuf); err != nil {
			return err
		}
		var raw int
		if s.Flags.Prefix == PrefixU8 {
			raw = int(pbuf[0])
		} else {
			raw = int(binary.BigEndian.Uint16(pbuf))
		}
		if s.Flags.SizeIncludesPrefix {
			raw -= s.prefixLen()
		}
		n = raw
	}

	if s.Flags.FixedWidth > 0 {
		width := s.Flags.FixedWidth
		buf := make([]byte, width)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			buf = buf[:i]
		}
		s.Val = string(buf)
		s.set = true
		return nil
	}

	if n >= 0 {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			buf = buf[:i]
		}
		s.Val = string(buf)
		s.set = true
		return nil
	}

	// No prefix, not fixed-width: read up to NUL.
	var out []byte
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return err
		}
		if one[0] == 0 {
			break
		}
		out = append(out, one[0])
	}
	s.Val = string(out)
	s.set = true
	return nil
}

// Write emits the inverse of Read: prefix (if any), then payload padded
// with a single NUL then 0xFF for fixed-width strings, matching §4.G.
func (s *String) Write(w io.Writer) error {
	payload := []byte(s.Val)

	if s.Flags.FixedWidth > 0 {
		width := s.Flags.FixedWidth
		buf := make([]byte, width)
		for i := range buf {
			buf[i] = 0xff
		}
		copy(buf, payload)
		if len(payload) < width {
			buf[len(payload)] = 0
		}
		if err := s.writePrefix(w, width); err != nil {
			return err
		}
		_, err := w.Write(buf)
		return err
	}

	body := payload
	if s.Flags.RequiresNUL || s.Flags.Prefix == PrefixNone {
		body = append(append([]byte{}, payload...), 0)
	}
	if err := s.writePrefix(w, len(body)); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func (s *String) writePrefix(w io.Writer, payloadLen int) error {
	if s.Flags.Prefix == PrefixNone {
		return nil
	}
	n := payloadLen
	if s.Flags.SizeIncludesPrefix {
		n += s.prefixLen()
	}
	switch s.Flags.Prefix {
	case PrefixU8:
		_, err := w.Write([]byte{byte(n)})
		return err
	case PrefixU16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		_, err := w.Write(buf[:])
		return err
	}
	return nil
}

func (s *String) Parse(text string) error {
	s.Val = text
	s.set = true
	return nil
}

func (s *String) ToString(level int, pretty bool) string {
	if pretty {
		return fmt.Sprintf("%q", s.Val)
	}
	return s.Val
}

func (s *String) Bytes() int {
	if s.Flags.FixedWidth > 0 {
		return s.prefixLen() + s.Flags.FixedWidth
	}
	n := len(s.Val)
	if s.Flags.RequiresNUL || s.Flags.Prefix == PrefixNone {
		n++
	}
	return s.prefixLen() + n
}
