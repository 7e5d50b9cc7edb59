// Package bcrypto implements the seven crypto primitives settings
// containers are framed with (§4.F): MD5, AES-256-ECB, AES-128-CBC,
// DES/3DES-ECB, XOR, the Motorola PRNG stream cipher, and the 16x16
// substitution cipher, plus the padding schemes of §4.F's table.
//
// The block ciphers are backed by the standard library (crypto/aes,
// crypto/des, crypto/cipher): no library in the retrieved corpus offers an
// idiomatic ECB mode (ECB is intentionally absent from Go's cipher
// package), so this is implemented directly against cipher.Block. See
// DESIGN.md for why these stay on the standard library.
package bcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"fmt"
)

// MD5 returns the 16-byte digest of buf.
func MD5(buf []byte) [16]byte { return md5.Sum(buf) }

func ecbCrypt(block cipher.Block, buf []byte, encrypt bool) ([]byte, error) {
	bs := block.BlockSize()
	if len(buf)%bs != 0 {
		return nil, fmt.Errorf("bcrypto: buffer length %d not a multiple of block size %d", len(buf), bs)
	}
	out := make([]byte, len(buf))
	for off := 0; off < len(buf); off += bs {
		if encrypt {
			block.Encrypt(out[off:off+bs], buf[off:off+bs])
		} else {
			block.Decrypt(out[off:off+bs], buf[off:off+bs])
		}
	}
	return out, nil
}

// AES256ECB encrypts or decrypts buf (a multiple of 16 bytes) with a 32
// byte key, one block at a time, with no chaining.
func AES256ECB(buf, key []byte, encrypt bool) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("bcrypto: aes-256-ecb needs a 32 byte key, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return ecbCrypt(block, buf, encrypt)
}

// AES128CBC encrypts or decrypts buf with a 16 byte key and 16 byte IV.
func AES128CBC(buf, key, iv []byte, encrypt bool) ([]byte, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("bcrypto: aes-128-cbc needs a 16 byte key, got %d", len(key))
	}
	if len(iv) != 16 {
		return nil, fmt.Errorf("bcrypto: aes-128-cbc needs a 16 byte iv, got %d", len(iv))
	}
	if len(buf)%16 != 0 {
		return nil, fmt.Errorf("bcrypto: buffer length %d not a multiple of 16", len(buf))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, buf)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, buf)
	}
	return out, nil
}

// DESECB encrypts or decrypts buf with an 8 byte key.
func DESECB(buf, key []byte, encrypt bool) ([]byte, error) {
	if len(key) != 8 {
		return nil, fmt.Errorf("bcrypto: des-ecb needs an 8 byte key, got %d", len(key))
	}
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return ecbCrypt(block, buf, encrypt)
}

// TripleDESECB encrypts or decrypts buf with a 24 byte key.
func TripleDESECB(buf, key []byte, encrypt bool) ([]byte, error) {
	if len(key) != 24 {
		return nil, fmt.Errorf("bcrypto: 3des-ecb needs a 24 byte key, got %d", len(key))
	}
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, err
	}
	return ecbCrypt(block, buf, encrypt)
}

// XOR encrypts/decrypts (the operation is its own inverse) buf with a
// single byte key, streamed over every byte.
func XOR(buf []byte, key byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = b ^ key
	}
	return out
}

// Sub16x16 applies the 16x16 substitution cipher over the first
// 16*(len(buf)/16) bytes: b[i] +/- ((i/16)*16 + (i%16 &^ 1)).
func Sub16x16(buf []byte, encrypt bool) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	whole := (len(buf) / 16) * 16
	for i := 0; i < whole; i++ {
		k := byte((i/16)*16 + (i % 16 &^ 1))
		if encrypt {
			out[i] = out[i] - k
		} else {
			out[i] = out[i] + k
		}
	}
	return out
}
