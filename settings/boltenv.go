package settings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode"

	"go.uber.org/zap"

	"github.com/brcm33xx/bcmhost/bcrypto"
)

const (
	boltEnvTLVCheat = 0x1a01
	boltEnvMagic    = 0xbabefeed
	boltEnvHdrLen   = 28
)

const (
	boltVarEnd byte = iota
	boltVar
	boltVarBlock
)

const (
	boltFlagTemp = 1 << 0
	boltFlagRO   = 1 << 1
)

// BoltVar is one decoded BOLT env record: either a "NAME=VALUE" text
// variable or an opaque binary block.
type BoltVar struct {
	Block bool
	Name  string // unset for blocks
	Value string // text value for vars; unused for blocks
	Data  []byte // raw payload for blocks
	Temp  bool
	RO    bool
}

// BoltEnv is the BOLT bootloader's environment-variable store (§4.H).
// Unlike GatewaySettings and perm/dyn, BOLT env is never auto-detected by
// Sniff — callers must select it explicitly, since its header shares no
// distinguishing byte pattern with the other two formats at a glance.
type BoltEnv struct {
	Unk1, Unk2 uint32
	WriteCount uint32
	Key        []byte
	Vars       []BoltVar
}

// ReadBoltEnv parses a raw BOLT env dump. key, if non-empty, is applied as
// an AES-256-ECB key before the CRC32 and TLV stream are interpreted —
// BOLT env profiles that encrypt the store do so over the whole TLV
// region, header excluded.
func ReadBoltEnv(raw []byte, key []byte, log *zap.Logger) (*BoltEnv, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(raw) < boltEnvHdrLen {
		return nil, fmt.Errorf("settings: boltenv: too short for header")
	}
	tlvCheat := binary.LittleEndian.Uint32(raw[0:4])
	magic := binary.LittleEndian.Uint32(raw[4:8])
	if tlvCheat != boltEnvTLVCheat || magic != boltEnvMagic {
		return nil, fmt.Errorf("settings: boltenv: bad magic 0x%08x/0x%08x", tlvCheat, magic)
	}

	be := &BoltEnv{
		Unk1:       binary.LittleEndian.Uint32(raw[8:12]),
		Unk2:       binary.LittleEndian.Uint32(raw[12:16]),
		WriteCount: binary.LittleEndian.Uint32(raw[16:20]),
	}
	size := binary.LittleEndian.Uint32(raw[20:24])
	checksum := binary.LittleEndian.Uint32(raw[24:28])

	if uint64(boltEnvHdrLen)+uint64(size) > uint64(len(raw)) {
		return nil, fmt.Errorf("settings: boltenv: declared size %d exceeds buffer", size)
	}
	region := raw[boltEnvHdrLen : boltEnvHdrLen+size]

	if len(key) > 0 {
		dec, err := bcrypto.AES256ECB(region, key, false)
		if err == nil {
			region = dec
			be.Key = key
		}
	}

	if got := crc32.ChecksumIEEE(region); got != checksum {
		log.Debug("boltenv: checksum mismatch", zap.Uint32("want", checksum), zap.Uint32("got", got))
	}

	vars, err := parseBoltVars(region)
	if err != nil {
		return nil, err
	}
	be.Vars = vars
	return be, nil
}

func parseBoltVars(buf []byte) ([]BoltVar, error) {
	var vars []BoltVar
	i := 0
	for i < len(buf) {
		typ := buf[i]
		if typ == boltVarEnd {
			break
		}
		if i+3 > len(buf) {
			return nil, fmt.Errorf("settings: boltenv: truncated variable header")
		}
		switch typ {
		case boltVar:
			size := int(buf[i+1])
			flags := buf[i+2]
			if size == 0 {
				return nil, fmt.Errorf("settings: boltenv: zero-length var size")
			}
			dataLen := size - 1
			if i+3+dataLen > len(buf) {
				return nil, fmt.Errorf("settings: boltenv: truncated variable data")
			}
			text := string(buf[i+3 : i+3+dataLen])
			v := BoltVar{
				Temp: flags&boltFlagTemp != 0,
				RO:   flags&boltFlagRO != 0,
			}
			if name, value, ok := splitNameValue(text); ok && isPrintableASCII(name) {
				v.Name, v.Value = name, value
			} else {
				v.Name, v.Value = "", text
			}
			vars = append(vars, v)
			i += 3 + dataLen
		case boltVarBlock:
			size := int(binary.BigEndian.Uint16(buf[i+1 : i+3]))
			if i+3+size > len(buf) {
				return nil, fmt.Errorf("settings: boltenv: truncated block data")
			}
			vars = append(vars, BoltVar{Block: true, Data: append([]byte{}, buf[i+3:i+3+size]...)})
			i += 3 + size
		default:
			return nil, fmt.Errorf("settings: boltenv: unknown variable type 0x%02x", typ)
		}
	}
	return vars, nil
}

func splitNameValue(s string) (name, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func isPrintableASCII(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Write re-encodes the environment, pads the TLV region to a multiple of
// 16, optionally AES-256-ECB encrypts it, then pads the whole record out
// to originalSize with 0xFF. The encoded record must not exceed
// originalSize — BOLT env lives in a fixed-size flash partition with no
// room to grow.
func (be *BoltEnv) Write(originalSize int) ([]byte, error) {
	var region bytes.Buffer
	for _, v := range be.Vars {
		if v.Block {
			if len(v.Data) > 0xffff {
				return nil, fmt.Errorf("settings: boltenv: block too large (%d bytes)", len(v.Data))
			}
			region.WriteByte(boltVarBlock)
			var sz [2]byte
			binary.BigEndian.PutUint16(sz[:], uint16(len(v.Data)))
			region.Write(sz[:])
			region.Write(v.Data)
			continue
		}
		text := v.Value
		if v.Name != "" {
			text = v.Name + "=" + v.Value
		}
		size := len(text) + 1
		if size > 0xff {
			return nil, fmt.Errorf("settings: boltenv: variable %q too large", v.Name)
		}
		var flags byte
		if v.Temp {
			flags |= boltFlagTemp
		}
		if v.RO {
			flags |= boltFlagRO
		}
		region.WriteByte(boltVar)
		region.WriteByte(byte(size))
		region.WriteByte(flags)
		region.WriteString(text)
	}
	region.WriteByte(boltVarEnd)

	buf := region.Bytes()
	for len(buf)%16 != 0 {
		buf = append(buf, 0)
	}

	checksum := crc32.ChecksumIEEE(buf)
	if len(be.Key) > 0 {
		enc, err := bcrypto.AES256ECB(buf, be.Key, true)
		if err != nil {
			return nil, err
		}
		buf = enc
	}

	if boltEnvHdrLen+len(buf) > originalSize {
		return nil, fmt.Errorf("settings: boltenv: encoded size %d exceeds partition size %d", boltEnvHdrLen+len(buf), originalSize)
	}

	var out bytes.Buffer
	var tlvCheat [4]byte
	binary.LittleEndian.PutUint32(tlvCheat[:], boltEnvTLVCheat)
	out.Write(tlvCheat[:])
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], boltEnvMagic)
	out.Write(magic[:])
	var rest [20]byte
	binary.LittleEndian.PutUint32(rest[0:4], be.Unk1)
	binary.LittleEndian.PutUint32(rest[4:8], be.Unk2)
	binary.LittleEndian.PutUint32(rest[8:12], be.WriteCount+1)
	binary.LittleEndian.PutUint32(rest[12:16], uint32(len(buf)))
	binary.LittleEndian.PutUint32(rest[16:20], checksum)
	out.Write(rest[:])
	out.Write(buf)

	for out.Len() < originalSize {
		out.WriteByte(0xff)
	}
	return out.Bytes(), nil
}
