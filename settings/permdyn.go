package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/brcm33xx/bcmhost/bcrypto"
	"github.com/brcm33xx/bcmhost/nv"
)

// oldStylePrefixLen is the legacy permnv/dynnv padding: 202 bytes of 0xFF
// before the first u32 size · u32 checksum header.
const oldStylePrefixLen = 202

// PermDyn is the legacy perm/dyn settings container (§4.H). Unlike
// GatewaySettings it carries no magic string: its own frame (size,
// checksum, and — for the old-style dual-segment layout — a footer
// selecting the active primary/backup segment) is the only self
// description it has.
type PermDyn struct {
	Key        []byte
	OldStyle   bool
	WriteCount uint32
	Size       uint32
	Checksum   uint32
	Groups     []*nv.Group
}

// ReadPermDyn parses raw perm/dyn bytes. key, if non-empty, is tried as an
// AES-256-ECB key; since perm/dyn carries no magic, encryption is detected
// heuristically by comparing how many settings groups the encrypted vs.
// unencrypted parse yields (§4.H, §9 Open Question).
func ReadPermDyn(raw []byte, key []byte, log *zap.Logger) (*PermDyn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("settings: permdyn: too short for header")
	}
	pd := &PermDyn{}

	size := binary.BigEndian.Uint32(raw[0:4])
	checksum := binary.BigEndian.Uint32(raw[4:8])
	bodyOff := 8

	if size == 0xffffffff && checksum == 0xffffffff {
		pd.OldStyle = true
		prefix := raw[8:oldStylePrefixLen]
		for _, b := range prefix {
			if b != 0xff {
				return nil, fmt.Errorf("settings: permdyn: old-style prefix not all 0xff")
			}
		}

		if len(raw) < 8 {
			return nil, fmt.Errorf("settings: permdyn: truncated footer")
		}
		footer := raw[len(raw)-8:]
		segSize := binary.BigEndian.Uint32(footer[0:4])
		segBitmask := int32(binary.BigEndian.Uint32(footer[4:8]))
		rawSize := uint32(len(raw) - 8)

		segIndex := uint32(-segBitmask)
		var offset uint32
		if segSize > rawSize || segSize == 0xffffffff {
			// invalid segment size; fall back to the primary segment
		} else {
			wc := bits.Len32(segIndex) - 1 - 1
			if wc >= 0 && uint32(1)<<uint(wc+1) == segIndex {
				pd.WriteCount = uint32(wc)
				off64 := uint64(segSize) * uint64(min32(pd.WriteCount, 16))
				if off64 < uint64(rawSize) {
					offset = uint32(off64)
				}
			}
		}

		// beg is the position the file-level reader was at before it
		// backed up 16 bytes to hand us the buffer, i.e. the very start
		// of this container (offset 0 here, since callers hand us a
		// self-contained slice rather than a shared stream cursor).
		if offset >= rawSize {
			offset = 0
		}
		hdrPos := offset + oldStylePrefixLen
		if uint64(hdrPos)+8 > uint64(len(raw)) {
			hdrPos = oldStylePrefixLen
		}
		size = binary.BigEndian.Uint32(raw[hdrPos : hdrPos+4])
		checksum = binary.BigEndian.Uint32(raw[hdrPos+4 : hdrPos+8])
		if size == 0xffffffff || uint64(size) > uint64(rawSize) {
			hdrPos = oldStylePrefixLen
			size = binary.BigEndian.Uint32(raw[hdrPos : hdrPos+4])
			checksum = binary.BigEndian.Uint32(raw[hdrPos+4 : hdrPos+8])
		}
		bodyOff = int(hdrPos) + 8
	}

	pd.Size = size
	pd.Checksum = checksum

	if bodyOff > len(raw) {
		return nil, fmt.Errorf("settings: permdyn: header points past end of buffer")
	}
	buf := raw[bodyOff:]
	if size >= 8 && uint64(len(buf)) >= uint64(size-8) {
		buf = buf[:size-8]
	}

	if computed := permdynChecksum(buf); computed != checksum {
		log.Debug("permdyn: checksum mismatch", zap.Uint32("want", checksum), zap.Uint32("got", computed))
	}

	unencGroups, err := readGroupStream(buf, nv.FormatPermDyn)
	if err != nil {
		return nil, err
	}

	if len(key) == 0 {
		pd.Groups = unencGroups
		return pd, nil
	}

	decrypted, err := bcrypto.AES256ECB(buf, key, false)
	if err != nil {
		pd.Groups = unencGroups
		return pd, nil
	}
	encGroups, err := readGroupStream(decrypted, nv.FormatPermDyn)
	if err != nil || len(encGroups) == 0 {
		pd.Groups = unencGroups
		return pd, nil
	}

	if len(unencGroups) > len(encGroups) {
		pd.Groups = unencGroups
		return pd, nil
	}
	if len(unencGroups) == len(encGroups) && len(encGroups) == 1 {
		major, minor := encGroups[0].Version>>8, encGroups[0].Version&0xff
		if major > 5 || minor > 100 {
			pd.Groups = unencGroups
			return pd, nil
		}
	}

	pd.Key = key
	pd.Groups = encGroups
	return pd, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func readGroupStream(buf []byte, format nv.Format) ([]*nv.Group, error) {
	r := bytes.NewReader(buf)
	var groups []*nv.Group
	for r.Len() > 0 {
		g, err := nv.ReadGroup(r, format)
		if err != nil {
			break
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// permdynChecksum matches gwsettings.cc's calc_checksum: a ones-complement
// big-endian word sum over buf, seeded with len(buf)+8 to stand in for the
// zeroed-out header (u32 size, u32 checksum) that precedes buf on the wire.
func permdynChecksum(buf []byte) uint32 {
	sum := uint32(len(buf)) + 8
	remaining := len(buf)
	pos := 0
	for remaining >= 4 {
		sum += binary.BigEndian.Uint32(buf[pos : pos+4])
		pos += 4
		remaining -= 4
	}
	var half uint16
	if remaining >= 2 {
		half = binary.BigEndian.Uint16(buf[pos : pos+2])
		pos += 2
		remaining -= 2
	}
	var tailByte byte
	if remaining > 0 {
		tailByte = buf[pos]
	}
	sum += (uint32(tailByte) | (uint32(half) << 8)) << 8
	return ^sum
}

// Write serialises pd back to bytes. The old-style dual-segment layout is
// reproduced as a single-write file (primary and backup segments hold
// identical data), matching the teacher's own "pretend this was written
// once" simplification — actual incremental wear levelling is not
// reproduced.
func (pd *PermDyn) Write(rawSize int) ([]byte, error) {
	var body bytes.Buffer
	for _, g := range pd.Groups {
		if err := g.Write(&body); err != nil {
			return nil, err
		}
	}
	buf := body.Bytes()
	if len(pd.Key) > 0 {
		enc, err := bcrypto.AES256ECB(buf, pd.Key, true)
		if err != nil {
			return nil, err
		}
		buf = enc
	}

	var hdr bytes.Buffer
	var sizeBytes [4]byte
	binary.BigEndian.PutUint32(sizeBytes[:], uint32(8+len(buf)))
	hdr.Write(sizeBytes[:])
	var sumBytes [4]byte
	binary.BigEndian.PutUint32(sumBytes[:], permdynChecksum(buf))
	hdr.Write(sumBytes[:])
	hdr.Write(buf)

	if !pd.OldStyle {
		return hdr.Bytes(), nil
	}

	var out bytes.Buffer
	out.Write(bytes.Repeat([]byte{0xff}, oldStylePrefixLen))
	out.Write(hdr.Bytes())

	segmentSize := out.Len()
	diff := rawSize - 8 - segmentSize
	if diff < 0 {
		return nil, fmt.Errorf("settings: permdyn: primary segment exceeds partition size")
	}
	if segmentSize < diff {
		if alignLeft(segmentSize, 0x1000) < diff {
			segmentSize = alignRight(segmentSize, 0x1000)
		} else if alignLeft(segmentSize, 0x100) < diff {
			segmentSize = alignRight(segmentSize, 0x100)
		}
		out.Write(bytes.Repeat([]byte{0xff}, segmentSize-out.Len()))
		out.Write(bytes.Repeat([]byte{0xff}, oldStylePrefixLen))
		out.Write(hdr.Bytes())
		diff -= segmentSize
	}
	if diff < 0 {
		return nil, fmt.Errorf("settings: permdyn: file size exceeds maximum of %d", rawSize)
	}
	out.Write(bytes.Repeat([]byte{0xff}, diff))

	var footer [8]byte
	binary.BigEndian.PutUint32(footer[0:4], uint32(segmentSize))
	binary.BigEndian.PutUint32(footer[4:8], 0xfffffffc)
	out.Write(footer[:])

	return out.Bytes(), nil
}

func alignRight(v, align int) int {
	if v%align == 0 {
		return v
	}
	return (v/align + 1) * align
}

func alignLeft(v, align int) int {
	return (v / align) * align
}
