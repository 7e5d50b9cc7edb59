// Package mipsgen implements the MIPS codegen support (§4.E) used by the
// RWX "code" driver to assemble dumpcode/writecode payloads: programs are
// declared as arrays of big-endian 32-bit words; certain slots are labels
// the resolver strips out, rewriting every branch/jump whose immediate
// carries the 0x8000 label marker into a signed PC-relative offset.
package mipsgen

import (
	"fmt"
)

// Word is one 32-bit big-endian MIPS instruction or data slot.
type Word uint32

// labelMarker is OR'd into a branch/jump's 16-bit immediate to mark it as
// referring to a label rather than holding a literal offset already.
const labelMarker = 0x8000

// maxLabel mirrors the reference assembler's "label > 127" failure mode.
const maxLabel = 127

// Program is a mutable array of words.
type Program struct {
	Words []Word
}

// NewProgram copies words into a fresh, independently mutable Program.
func NewProgram(words []Word) *Program {
	p := &Program{Words: make([]Word, len(words))}
	copy(p.Words, words)
	return p
}

// Label emits the dummy `addiu zero,zero,0x8000|id` marker instruction the
// resolver recognises and removes. addiuOp is the MIPS ADDIU opcode word
// with rs=rt=zero baked in by the caller (mipsgen doesn't know the full
// encoding — it only owns the immediate field).
func Label(addiuOp Word, id int) (Word, error) {
	if id < 0 || id > maxLabel {
		return 0, fmt.Errorf("mipsgen: label id %d out of range [0,%d]", id, maxLabel)
	}
	return addiuOp&^0xffff | Word(labelMarker|id), nil
}

// isLabel reports whether w is a label marker and, if so, its id.
func isLabel(w Word, addiuOpMask Word) (int, bool) {
	if w&addiuOpMask != addiuOpMask {
		return 0, false
	}
	imm := w & 0xffff
	if imm&labelMarker == 0 {
		return 0, false
	}
	return int(imm &^ labelMarker), true
}

// isBranchRef reports whether w's low 16 bits carry a label-marked
// immediate that a non-label branch/jump instruction needs resolved.
func isBranchRef(w Word) (int, bool) {
	imm := w & 0xffff
	if imm&labelMarker == 0 {
		return 0, false
	}
	return int(imm &^ labelMarker), true
}

// Resolve walks prog once, records label id -> word index for every label
// marker matching addiuOpMask, then rewrites every other word whose
// immediate carries the label marker into a signed PC-relative word offset
// (the branch displacement MIPS encodes, i.e. (target-pc-1) in words).
// Label markers are replaced with a NOP (word 0) in place, matching the
// reference's "resolver removes them" behaviour without shrinking the
// array (slots are pre-allocated by the caller's patch layout).
func Resolve(prog *Program, addiuOpMask Word) error {
	positions := make(map[int]int, 8)
	for i, w := range prog.Words {
		if id, ok := isLabel(w, addiuOpMask); ok {
			if _, dup := positions[id]; dup {
				return fmt.Errorf("mipsgen: label %d defined twice", id)
			}
			positions[id] = i
			prog.Words[i] = 0
		}
	}

	for i, w := range prog.Words {
		id, ok := isBranchRef(w)
		if !ok {
			continue
		}
		target, known := positions[id]
		if !known {
			return fmt.Errorf("mipsgen: unresolved branch to label %d at word %d", id, i)
		}
		offset := int32(target - i - 1)
		if offset < -32768 || offset > 32767 {
			return fmt.Errorf("mipsgen: branch offset %d at word %d out of range", offset, i)
		}
		prog.Words[i] = w&^0xffff | Word(uint16(int16(offset)))
	}
	return nil
}

// Patch is a (address, replacement_word) pair; applying swaps *addr with
// word in the slot, so applying it a second time restores the original —
// the same representation spec.md §9 describes for on-device code patches
// and §3's function-descriptor patch slots.
type Patch struct {
	Addr uint32
	Word Word
}

// Apply swaps patch.Word into the word array at index, returning the
// displaced word (with patch.Addr) as the symmetric reverting Patch.
func Apply(prog *Program, index int, patch Patch) (Patch, error) {
	if index < 0 || index >= len(prog.Words) {
		return Patch{}, fmt.Errorf("mipsgen: patch index %d out of range", index)
	}
	old := prog.Words[index]
	prog.Words[index] = patch.Word
	return Patch{Addr: patch.Addr, Word: old}, nil
}

// Bytes renders the program as big-endian bytes, the wire format the code
// RWX driver uploads.
func (p *Program) Bytes() []byte {
	out := make([]byte, len(p.Words)*4)
	for i, w := range p.Words {
		out[i*4+0] = byte(w >> 24)
		out[i*4+1] = byte(w >> 16)
		out[i*4+2] = byte(w >> 8)
		out[i*4+3] = byte(w)
	}
	return out
}
