// Package secure is the opaque pass-through "security" layer: a
// deterministic pseudo key exchange and an XOR transform. It carries the
// wire parameters faithfully and promises nothing cryptographic.
package secure

import (
	"fmt"

	"simnet/internal/wire"
)

// KeyPair holds a node's pseudo ECDH material.
type KeyPair struct {
	Public string
}

// NewKeyPair derives the key from the node address, the same way every
// run derives it, so traces stay reproducible.
func NewKeyPair(addr wire.Addr) KeyPair {
	return KeyPair{Public: pseudoKey(int64(addr) * 2)}
}

func pseudoKey(seed int64) string {
	return fmt.Sprintf("%x", seed*0x12345+0x6789ABCD)
}

// SharedSecret folds the two public keys into a 16-byte shared key.
// The keys are combined in sorted order so both endpoints derive the
// same value without any real DH math.
func (kp KeyPair) SharedSecret(peerPublic string) string {
	lo, hi := kp.Public, peerPublic
	if lo > hi {
		lo, hi = hi, lo
	}
	combined := lo + hi
	secret := make([]byte, 16)
	for i := range secret {
		secret[i] = byte((combined[i%len(combined)] ^ 0x5A) + byte(i))
	}
	return string(secret)
}

// Crypt XORs data with the repeating key. It is its own inverse:
// Crypt(Crypt(x, k), k) == x for any non-empty k.
func Crypt(data, key string) string {
	if key == "" {
		return data
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i++ {
		out[i] = data[i] ^ key[i%len(key)] ^ 0xAA
	}
	return string(out)
}
