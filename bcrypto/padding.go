package bcrypto

import "fmt"

// PadMode selects one of the seven framing padding schemes §4.F lists.
type PadMode int

const (
	PadNone PadMode = iota
	PadZero
	PadPKCS7
	PadANSIX923
	PadANSILike // last byte holds pad_len-1
	PadFullZeroBlock
	PadFullOneBlock
)

// Pad grows buf to a multiple of blockSize per mode. prefixLen accounts for
// framing bytes that precede buf on the wire but still count toward the
// pad-length arithmetic when the profile sets size_includes_prefix.
func Pad(buf []byte, blockSize int, mode PadMode, prefixLen int) ([]byte, error) {
	total := prefixLen + len(buf)
	rem := total % blockSize
	padLen := 0
	if rem != 0 {
		padLen = blockSize - rem
	}

	switch mode {
	case PadNone:
		return buf, nil
	case PadZero:
		return append(buf, make([]byte, padLen)...), nil
	case PadPKCS7:
		if padLen == 0 {
			padLen = blockSize
		}
		out := append(buf, make([]byte, padLen)...)
		for i := len(buf); i < len(out); i++ {
			out[i] = byte(padLen)
		}
		return out, nil
	case PadANSIX923:
		if padLen == 0 {
			padLen = blockSize
		}
		out := append(buf, make([]byte, padLen)...)
		out[len(out)-1] = byte(padLen)
		return out, nil
	case PadANSILike:
		if padLen == 0 {
			padLen = blockSize
		}
		out := append(buf, make([]byte, padLen)...)
		out[len(out)-1] = byte(padLen - 1)
		return out, nil
	case PadFullZeroBlock:
		if padLen == 0 {
			padLen = blockSize
		}
		return append(buf, make([]byte, padLen)...), nil
	case PadFullOneBlock:
		if padLen == 0 {
			padLen = blockSize
		}
		fill := make([]byte, padLen)
		for i := range fill {
			fill[i] = 0x01
		}
		return append(buf, fill...), nil
	default:
		return nil, fmt.Errorf("bcrypto: unknown padding mode %d", mode)
	}
}

// Unpad removes padding added by Pad. It verifies the padding where the
// scheme makes that possible (PKCS7, ANSI X.923, ANSI-like) and on failure
// leaves buf untouched and reports false, matching §4.F's "unpadding
// verifies and otherwise leaves the buffer untouched" rule.
func Unpad(buf []byte, blockSize int, mode PadMode) ([]byte, bool) {
	switch mode {
	case PadNone, PadZero, PadFullZeroBlock, PadFullOneBlock:
		// No recoverable length marker; caller already knows the true
		// length from a length field elsewhere in the frame.
		return buf, true
	case PadPKCS7:
		if len(buf) == 0 {
			return buf, false
		}
		padLen := int(buf[len(buf)-1])
		if padLen == 0 || padLen > blockSize || padLen > len(buf) {
			return buf, false
		}
		for i := len(buf) - padLen; i < len(buf); i++ {
			if buf[i] != byte(padLen) {
				return buf, false
			}
		}
		return buf[:len(buf)-padLen], true
	case PadANSIX923:
		if len(buf) == 0 {
			return buf, false
		}
		padLen := int(buf[len(buf)-1])
		if padLen == 0 || padLen > blockSize || padLen > len(buf) {
			return buf, false
		}
		for i := len(buf) - padLen; i < len(buf)-1; i++ {
			if buf[i] != 0 {
				return buf, false
			}
		}
		return buf[:len(buf)-padLen], true
	case PadANSILike:
		if len(buf) == 0 {
			return buf, false
		}
		padLen := int(buf[len(buf)-1]) + 1
		if padLen <= 0 || padLen > blockSize || padLen > len(buf) {
			return buf, false
		}
		return buf[:len(buf)-padLen], true
	default:
		return buf, false
	}
}
