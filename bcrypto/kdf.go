package bcrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// DerivePBKDF2 derives a keyLen-byte key from password using PBKDF2-SHA256
// with the given salt and iteration count. This backs the optional
// key-derivation function a Profile may declare over a password (§3); the
// reference implementation's per-profile keyfun callbacks (e.g. tc7200's
// ad-hoc key layout, see profile.Builtin) are kept as-is where a profile
// defines its own, and DerivePBKDF2 is offered as the general-purpose KDF
// for profiles that just want a standard one.
func DerivePBKDF2(password string, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}
