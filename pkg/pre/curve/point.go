package curve

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Point is a point on secp256k1. Points are kept in affine form; the point
// at infinity is represented with zero coordinates.
type Point struct {
	j btcec.JacobianPoint
}

// Generator returns the standard base point G.
func Generator() *Point {
	return BaseMul(NewScalarFromUint32(1))
}

// NewPointFromBytes decodes a 33-byte compressed point. The point must lie
// on the curve; the point at infinity has no encoding and is rejected.
func NewPointFromBytes(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, fmt.Errorf("invalid point length %d", len(b))
	}
	pk, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("parse point: %w", err)
	}
	var p Point
	pk.AsJacobian(&p.j)
	p.normalize()
	return &p, nil
}

// NewPointFromPubKey converts a btcec public key.
func NewPointFromPubKey(pk *btcec.PublicKey) (*Point, error) {
	if pk == nil {
		return nil, errors.New("nil public key")
	}
	var p Point
	pk.AsJacobian(&p.j)
	p.normalize()
	return &p, nil
}

// BaseMul returns k*G.
func BaseMul(k *Scalar) *Point {
	var p Point
	btcec.ScalarBaseMultNonConst(k.modN(), &p.j)
	p.normalize()
	return &p
}

// Mul returns k*p.
func (p *Point) Mul(k *Scalar) *Point {
	var r Point
	btcec.ScalarMultNonConst(k.modN(), &p.j, &r.j)
	r.normalize()
	return &r
}

// Add returns p + q.
func (p *Point) Add(q *Point) *Point {
	var r Point
	btcec.AddNonConst(&p.j, &q.j, &r.j)
	r.normalize()
	return &r
}

// IsInfinity reports whether p is the point at infinity.
func (p *Point) IsInfinity() bool {
	return p.j.X.IsZero() && p.j.Y.IsZero()
}

// Bytes returns the 33-byte compressed encoding. The point at infinity
// encodes as 33 zero bytes, which NewPointFromBytes rejects.
func (p *Point) Bytes() []byte {
	out := make([]byte, PointSize)
	if p.IsInfinity() {
		return out
	}
	out[0] = 0x02
	if p.j.Y.IsOdd() {
		out[0] = 0x03
	}
	x := p.j.X.Bytes()
	copy(out[1:], x[:])
	return out
}

// UncompressedBytes returns the 65-byte SEC1 uncompressed encoding.
func (p *Point) UncompressedBytes() []byte {
	out := make([]byte, 65)
	if p.IsInfinity() {
		return out
	}
	out[0] = 0x04
	x := p.j.X.Bytes()
	y := p.j.Y.Bytes()
	copy(out[1:33], x[:])
	copy(out[33:], y[:])
	return out
}

// PubKey converts p into a btcec public key for signature verification.
func (p *Point) PubKey() (*btcec.PublicKey, error) {
	if p.IsInfinity() {
		return nil, errors.New("point at infinity is not a public key")
	}
	return btcec.ParsePubKey(p.Bytes())
}

// Equal reports whether p and q are the same point. The encodings are
// compared in constant time.
func (p *Point) Equal(q *Point) bool {
	if p == nil || q == nil {
		return p == q
	}
	return subtle.ConstantTimeCompare(p.Bytes(), q.Bytes()) == 1
}

func (p *Point) normalize() {
	p.j.X.Normalize()
	p.j.Y.Normalize()
	p.j.Z.Normalize()
	if (p.j.X.IsZero() && p.j.Y.IsZero()) || p.j.Z.IsZero() {
		p.j.X.SetInt(0)
		p.j.Y.SetInt(0)
		p.j.Z.SetInt(0)
		return
	}
	p.j.ToAffine()
}
