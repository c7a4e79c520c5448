package curve

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Scalar is an integer modulo the secp256k1 group order.
//
// Arithmetic methods never modify their receiver or argument; they return a
// fresh Scalar. The zero value is the scalar 0.
type Scalar struct {
	v btcec.ModNScalar
}

// RandomScalar returns a uniformly random non-zero scalar read from
// crypto/rand.
func RandomScalar() (*Scalar, error) {
	return RandomScalarFrom(rand.Reader)
}

// RandomScalarFrom returns a uniformly random non-zero scalar read from r.
// 64 bytes are drawn and reduced modulo n so that the bias is negligible.
func RandomScalarFrom(r io.Reader) (*Scalar, error) {
	if r == nil {
		return nil, errors.New("nil random source")
	}
	var buf [64]byte
	defer zeroizeBytes(buf[:])
	for i := 0; i < 8; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read randomness: %w", err)
		}
		s := scalarFromWide(buf[:])
		if !s.IsZero() {
			return s, nil
		}
	}
	return nil, errors.New("random source produced only zero scalars")
}

// NewScalarFromBytes decodes a 32-byte big-endian scalar. Values greater
// than or equal to the group order are rejected.
func NewScalarFromBytes(b []byte) (*Scalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("invalid scalar length %d", len(b))
	}
	var s Scalar
	if overflow := s.v.SetByteSlice(b); overflow {
		s.v.Zero()
		return nil, errors.New("scalar overflows group order")
	}
	return &s, nil
}

// NewScalarFromUint32 returns the scalar with the given small value.
func NewScalarFromUint32(v uint32) *Scalar {
	var s Scalar
	s.v.SetInt(v)
	return &s
}

// scalarFromWide reduces an arbitrary-length big-endian integer modulo n.
func scalarFromWide(b []byte) *Scalar {
	n := new(big.Int).SetBytes(b)
	n.Mod(n, order())
	var fixed [ScalarSize]byte
	n.FillBytes(fixed[:])
	var s Scalar
	s.v.SetBytes(&fixed)
	zeroizeBytes(fixed[:])
	n.SetInt64(0)
	return &s
}

// Bytes returns the 32-byte big-endian encoding. The returned slice is a
// copy owned by the caller.
func (s *Scalar) Bytes() []byte {
	b := s.v.Bytes()
	out := make([]byte, ScalarSize)
	copy(out, b[:])
	zeroizeBytes(b[:])
	return out
}

// Add returns s + o.
func (s *Scalar) Add(o *Scalar) *Scalar {
	var r Scalar
	r.v.Add2(&s.v, &o.v)
	return &r
}

// Sub returns s - o.
func (s *Scalar) Sub(o *Scalar) *Scalar {
	var neg btcec.ModNScalar
	neg.NegateVal(&o.v)
	var r Scalar
	r.v.Add2(&s.v, &neg)
	neg.Zero()
	return &r
}

// Mul returns s * o.
func (s *Scalar) Mul(o *Scalar) *Scalar {
	var r Scalar
	r.v.Mul2(&s.v, &o.v)
	return &r
}

// Negate returns -s.
func (s *Scalar) Negate() *Scalar {
	var r Scalar
	r.v.NegateVal(&s.v)
	return &r
}

// Invert returns s^-1. Zero has no inverse.
func (s *Scalar) Invert() (*Scalar, error) {
	if s.IsZero() {
		return nil, errors.New("cannot invert zero scalar")
	}
	var r Scalar
	r.v.InverseValNonConst(&s.v)
	return &r, nil
}

// IsZero reports whether s is 0.
func (s *Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Equal reports whether s and o are the same scalar. The comparison is
// constant time.
func (s *Scalar) Equal(o *Scalar) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.v.Equals(&o.v)
}

// Zeroize clears the scalar.
func (s *Scalar) Zeroize() {
	if s == nil {
		return
	}
	s.v.Zero()
}

// modN exposes the underlying value to the point arithmetic in this package.
func (s *Scalar) modN() *btcec.ModNScalar {
	return &s.v
}
