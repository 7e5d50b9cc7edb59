package bcrypto

import "math"

// Motorola implements the Motorola-PRNG stream cipher: an LCG
// next = next*0x41c64e6d + 0x3039 composed three ways to produce a 31-bit
// output; each output byte is round((output/0x7fffffff)*255)+1, XORed with
// the plaintext byte. Grounded on the reference implementation's
// crypt_motorola, which composes the LCG step three times per output byte
// (once to fold into the high bits, twice more to fold the middle and low
// bits) before emitting one byte and re-seeding state for the next.
func Motorola(buf []byte, seed byte) []byte {
	out := make([]byte, len(buf))
	next := uint32(seed)
	for i, b := range buf {
		var result uint32

		next = next*0x41c64e6d + 0x3039
		result = next & 0xffe00000

		next = next*0x41c64e6d + 0x3039
		result += (next & 0xfffc0000) >> 11

		next = next*0x41c64e6d + 0x3039
		result = (result + (next >> 25)) & 0x7fffffff

		x := byte(int(math.Round((float64(result)/0x7fffffff)*255)) + 1)
		out[i] = b ^ x
	}
	return out
}
