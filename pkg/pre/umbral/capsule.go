package umbral

import (
	"crypto/sha256"
	"fmt"

	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

// CapsuleSize is the encoded size of a Capsule.
const CapsuleSize = 2*curve.PointSize + curve.ScalarSize

// Capsule encapsulates a symmetric key for a delegating public key.
type Capsule struct {
	e, v *curve.Point
	s    *curve.Scalar
}

// newCapsule draws fresh randomness and returns the capsule together with
// the shared point pk^(r+u).
func newCapsule(pk *PublicKey) (*Capsule, *curve.Point, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	defer r.Zeroize()
	u, err := curve.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	defer u.Zeroize()

	e := curve.BaseMul(r)
	v := curve.BaseMul(u)
	h := hashPoints(dstCapsule, nil, e, v)
	c := &Capsule{e: e, v: v, s: u.Add(r.Mul(h))}
	shared := pk.p.Mul(r.Add(u))
	return c, shared, nil
}

// CapsuleFromBytes decodes and verifies a capsule.
func CapsuleFromBytes(b []byte) (*Capsule, error) {
	if len(b) != CapsuleSize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidCapsule, len(b))
	}
	e, err := curve.NewPointFromBytes(b[:curve.PointSize])
	if err != nil {
		return nil, fmt.Errorf("%w: E: %v", ErrInvalidCapsule, err)
	}
	v, err := curve.NewPointFromBytes(b[curve.PointSize : 2*curve.PointSize])
	if err != nil {
		return nil, fmt.Errorf("%w: V: %v", ErrInvalidCapsule, err)
	}
	s, err := curve.NewScalarFromBytes(b[2*curve.PointSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: s: %v", ErrInvalidCapsule, err)
	}
	c := &Capsule{e: e, v: v, s: s}
	if !c.Verify() {
		return nil, ErrInvalidCapsule
	}
	return c, nil
}

// Verify checks s*G == V + H(E, V)*E.
func (c *Capsule) Verify() bool {
	if c == nil || c.e == nil || c.v == nil || c.s == nil {
		return false
	}
	h := hashPoints(dstCapsule, nil, c.e, c.v)
	return curve.BaseMul(c.s).Equal(c.v.Add(c.e.Mul(h)))
}

// Bytes returns E || V || s.
func (c *Capsule) Bytes() []byte {
	out := make([]byte, 0, CapsuleSize)
	out = append(out, c.e.Bytes()...)
	out = append(out, c.v.Bytes()...)
	out = append(out, c.s.Bytes()...)
	return out
}

// ID returns the SHA-256 digest of the encoded capsule. Capsule fragments
// carry it to tie them to the capsule they were computed over.
func (c *Capsule) ID() []byte {
	d := sha256.Sum256(c.Bytes())
	return d[:]
}

// OpenOriginal recovers the capsule key with the delegating secret key.
func (c *Capsule) OpenOriginal(sk *SecretKey) ([]byte, error) {
	if !c.Verify() {
		return nil, ErrInvalidCapsule
	}
	shared := c.e.Add(c.v).Mul(sk.s)
	return deriveDEMKey(shared)
}
