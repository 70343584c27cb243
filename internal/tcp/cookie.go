package tcp

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"simnet/internal/wire"
)

// cookieMask keeps the low 24 bits, the part of the cookie that is
// actually validated.
const cookieMask = 0xFFFFFF

// Cookie derives the SYN cookie for (src, dst, seq) under the
// process-wide secret: xxhash64 over the tuple, XOR-folded down to 24
// bits so the upper bits of the hash still influence the result.
func Cookie(secret uint64, src, dst wire.Addr, seq int64) int64 {
	var buf [24]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(src))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dst))
	binary.LittleEndian.PutUint64(buf[8:], uint64(seq))
	binary.LittleEndian.PutUint64(buf[16:], secret)
	h := xxhash.Sum64(buf[:])
	folded := (h ^ (h >> 24) ^ (h >> 48)) & cookieMask
	return int64(folded)
}

// ValidCookie checks the low 24 bits of a received cookie against the
// recomputed value. Anything else in the received value is ignored.
func ValidCookie(secret uint64, cookie int64, src, dst wire.Addr, seq int64) bool {
	return cookie&cookieMask == Cookie(secret, src, dst, seq)
}
