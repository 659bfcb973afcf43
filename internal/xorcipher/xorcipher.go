// Package xorcipher implements the outer demodisk's repeating-key XOR
// obfuscation layer. It has nothing to do with the ramdisk filesystem
// itself; the core engine only ever operates on already-deciphered
// bytes. This exists so the packer/unpacker tooling can round-trip a
// whole boot image.
package xorcipher

// key is the ASCII of " Dan Hildebrand creator of demodisk " with every
// byte decremented by 1.
var key = buildKey()

func buildKey() [36]byte {
	const phrase = " Dan Hildebrand creator of demodisk "
	var k [36]byte
	for i := 0; i < len(phrase); i++ {
		k[i] = phrase[i] - 1
	}
	return k
}

const segmentSize = 512

// Apply XORs in with the repeating key, restarting the key at the start
// of every 512-byte segment. It is involutive: Apply(Apply(b)) == b.
func Apply(in []byte) []byte {
	out := make([]byte, len(in))
	for offset := 0; offset < len(in); offset += segmentSize {
		end := offset + segmentSize
		if end > len(in) {
			end = len(in)
		}
		for i := offset; i < end; i++ {
			out[i] = in[i] ^ key[(i-offset)%len(key)]
		}
	}
	return out
}
