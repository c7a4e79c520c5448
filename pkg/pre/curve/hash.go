package curve

import (
	"encoding/binary"
	"hash"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/blake2b"
)

// HashToScalar hashes the domain tag and parts with BLAKE2b-512 and reduces
// the digest modulo the group order. Every part is length-prefixed so that
// distinct part boundaries never collide.
func HashToScalar(dst string, parts ...[]byte) *Scalar {
	h, err := blake2b.New512(nil)
	if err != nil {
		// blake2b.New512 only fails for keys longer than 64 bytes.
		panic(err)
	}
	writePrefixed(h, []byte(dst))
	for _, p := range parts {
		writePrefixed(h, p)
	}
	digest := h.Sum(nil)
	s := scalarFromWide(digest)
	zeroizeBytes(digest)
	return s
}

// HashToPoint maps msg to a curve point with unknown discrete logarithm
// using try-and-increment over BLAKE2b-256.
func HashToPoint(dst string, msg []byte) *Point {
	buf := make([]byte, 0, 4+len(dst)+4+len(msg)+4+1)
	var ctr [4]byte
	for i := uint32(0); ; i++ {
		binary.BigEndian.PutUint32(ctr[:], i)
		buf = buf[:0]
		buf = appendPrefixed(buf, []byte(dst))
		buf = appendPrefixed(buf, msg)
		buf = append(buf, ctr[:]...)
		digest := blake2b.Sum256(buf)
		candidate := make([]byte, 0, PointSize)
		candidate = append(candidate, 0x02)
		candidate = append(candidate, digest[:]...)
		pk, err := btcec.ParsePubKey(candidate)
		if err != nil {
			continue
		}
		p, err := NewPointFromPubKey(pk)
		if err != nil {
			continue
		}
		return p
	}
}

func writePrefixed(h hash.Hash, b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	h.Write(l[:])
	h.Write(b)
}

func appendPrefixed(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}
