// Package settings implements the three top-level settings-container
// formats (§4.H): GatewaySettings, perm/dyn, and BOLT env. Each format
// detects itself, applies its outer frame (prefix, checksum, padding,
// encryption), and iterates the nv.Group records inside via the nv
// package.
package settings

import (
	"fmt"

	"github.com/brcm33xx/bcmhost/bcrypto"
	"github.com/brcm33xx/bcmhost/profile"
)

// toPadMode maps the profile's padding policy onto bcrypto's pad modes;
// the two enums are kept separate (profile is data, bcrypto is mechanism)
// but intentionally mirror each other one-to-one.
func toPadMode(m profile.PaddingMode) bcrypto.PadMode {
	switch m {
	case profile.PadZero:
		return bcrypto.PadZero
	case profile.PadPKCS7:
		return bcrypto.PadPKCS7
	case profile.PadANSIX923:
		return bcrypto.PadANSIX923
	case profile.PadANSILike:
		return bcrypto.PadANSILike
	case profile.PadFullZeroBlock:
		return bcrypto.PadFullZeroBlock
	case profile.PadFullOneBlock:
		return bcrypto.PadFullOneBlock
	default:
		return bcrypto.PadNone
	}
}

// blockSize returns the cipher's block size, needed for padding arithmetic.
func blockSize(mode profile.EncMode) int {
	switch mode {
	case profile.EncAES256ECB, profile.EncAES128CBC:
		return 16
	case profile.EncDESECB, profile.Enc3DESECB:
		return 8
	default:
		return 1
	}
}

// decrypt applies mode's inverse transform to buf using key (and iv for
// CBC modes; ignored otherwise). XOR and Motorola use only key[0] as their
// single-byte key/seed.
func decrypt(mode profile.EncMode, buf, key, iv []byte) ([]byte, error) {
	switch mode {
	case profile.EncNone:
		return buf, nil
	case profile.EncAES256ECB:
		return bcrypto.AES256ECB(buf, key, false)
	case profile.EncAES128CBC:
		return bcrypto.AES128CBC(buf, key, iv, false)
	case profile.EncDESECB:
		return bcrypto.DESECB(buf, key, false)
	case profile.Enc3DESECB:
		return bcrypto.TripleDESECB(buf, key, false)
	case profile.EncXOR:
		if len(key) == 0 {
			return nil, fmt.Errorf("settings: xor needs a 1 byte key")
		}
		return bcrypto.XOR(buf, key[0]), nil
	case profile.EncMotorola:
		if len(key) == 0 {
			return nil, fmt.Errorf("settings: motorola needs a 1 byte seed")
		}
		return bcrypto.Motorola(buf, key[0]), nil
	default:
		return nil, fmt.Errorf("settings: unknown encryption mode %d", mode)
	}
}

func encrypt(mode profile.EncMode, buf, key, iv []byte) ([]byte, error) {
	switch mode {
	case profile.EncNone:
		return buf, nil
	case profile.EncAES256ECB:
		return bcrypto.AES256ECB(buf, key, true)
	case profile.EncAES128CBC:
		return bcrypto.AES128CBC(buf, key, iv, true)
	case profile.EncDESECB:
		return bcrypto.DESECB(buf, key, true)
	case profile.Enc3DESECB:
		return bcrypto.TripleDESECB(buf, key, true)
	case profile.EncXOR:
		if len(key) == 0 {
			return nil, fmt.Errorf("settings: xor needs a 1 byte key")
		}
		return bcrypto.XOR(buf, key[0]), nil
	case profile.EncMotorola:
		if len(key) == 0 {
			return nil, fmt.Errorf("settings: motorola needs a 1 byte seed")
		}
		return bcrypto.Motorola(buf, key[0]), nil
	default:
		return nil, fmt.Errorf("settings: unknown encryption mode %d", mode)
	}
}

// candidateKeys orders the key candidates §4.H's GatewaySettings read
// tries in turn: an explicit key, the password-derived key (if the
// profile declares a KDF), the profile's built-in default keys, and
// finally the empty key.
func candidateKeys(p *profile.Profile, explicitKey []byte, password string) [][]byte {
	var out [][]byte
	if len(explicitKey) > 0 {
		out = append(out, explicitKey)
	}
	if p.KDF != nil {
		keyLen := blockSize(p.Flags.Encryption)
		if p.Flags.Encryption == profile.EncAES256ECB {
			keyLen = 32
		}
		out = append(out, p.KDF(password, keyLen))
	}
	out = append(out, p.DefaultKeys...)
	out = append(out, nil)
	return out
}
