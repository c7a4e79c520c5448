package umbral

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

// CapsuleFrag is a re-encrypted share of a capsule produced by a node from
// its key fragment.
type CapsuleFrag struct {
	e1, v1    *curve.Point
	kfragID   []byte
	precursor *curve.Point
	capsuleID []byte
	proof     cfragProof
}

// cfragProof shows that E1 and V1 were computed with the same scalar that
// the grantor committed to in U1.
type cfragProof struct {
	e2, v2, u2 *curve.Point
	u1         *curve.Point
	z3         *curve.Scalar
	signature  *Signature
	nodeID     []byte
}

// Reencrypt transforms capsule with kfrag. The capsule is verified first.
func Reencrypt(capsule *Capsule, kfrag *KeyFrag) (*CapsuleFrag, error) {
	if !capsule.Verify() {
		return nil, ErrInvalidCapsule
	}
	if kfrag == nil || kfrag.key == nil {
		return nil, ErrInvalidKeyFrag
	}
	rk := kfrag.key
	e1 := capsule.e.Mul(rk)
	v1 := capsule.v.Mul(rk)

	t, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	defer t.Zeroize()
	u := ParameterU()
	e2 := capsule.e.Mul(t)
	v2 := capsule.v.Mul(t)
	u2 := u.Mul(t)
	capsuleID := capsule.ID()
	h := proofChallenge(capsule, e1, e2, v1, v2, kfrag.commitment, u2, capsuleID)

	return &CapsuleFrag{
		e1:        e1,
		v1:        v1,
		kfragID:   wire.Clone(kfrag.id),
		precursor: kfrag.precursor,
		capsuleID: capsuleID,
		proof: cfragProof{
			e2:        e2,
			v2:        v2,
			u2:        u2,
			u1:        kfrag.commitment,
			z3:        t.Add(h.Mul(rk)),
			signature: kfrag.signature,
			nodeID:    wire.Clone(kfrag.nodeID),
		},
	}, nil
}

func proofChallenge(c *Capsule, e1, e2, v1, v2, u1, u2 *curve.Point, capsuleID []byte) *curve.Scalar {
	return hashPoints(dstProof, capsuleID, c.e, e1, e2, c.v, v1, v2, ParameterU(), u1, u2)
}

// CapsuleID returns the id of the capsule this fragment was computed over.
func (cf *CapsuleFrag) CapsuleID() []byte { return wire.Clone(cf.capsuleID) }

// NodeID returns the node binding of the key fragment that produced cf.
func (cf *CapsuleFrag) NodeID() []byte { return wire.Clone(cf.proof.nodeID) }

// Commitment returns the kfrag commitment U1 the proof is relative to.
func (cf *CapsuleFrag) Commitment() *curve.Point { return cf.proof.u1 }

// Verify checks that cf was produced from capsule with a key fragment
// signed by verifyingKey for the delegating and receiving keys.
//
// ErrCapsuleMismatch is returned when cf belongs to another capsule;
// ErrInvalidCapsuleFrag for every other failure.
func (cf *CapsuleFrag) Verify(capsule *Capsule, verifyingKey, delegating, receiving *PublicKey) (*VerifiedCapsuleFrag, error) {
	if cf == nil || capsule == nil {
		return nil, ErrInvalidCapsuleFrag
	}
	if subtle.ConstantTimeCompare(cf.capsuleID, capsule.ID()) != 1 {
		return nil, ErrCapsuleMismatch
	}
	if verifyingKey == nil || delegating == nil || receiving == nil {
		return nil, fmt.Errorf("%w: missing verification keys", ErrInvalidCapsuleFrag)
	}
	p := cf.proof
	msg := kfragMessage(cf.kfragID, delegating, receiving, p.u1, cf.precursor, p.nodeID)
	if !p.signature.Verify(verifyingKey, msg) {
		return nil, fmt.Errorf("%w: kfrag signature", ErrInvalidCapsuleFrag)
	}

	h := proofChallenge(capsule, cf.e1, p.e2, cf.v1, p.v2, p.u1, p.u2, cf.capsuleID)
	ok := capsule.e.Mul(p.z3).Equal(p.e2.Add(cf.e1.Mul(h)))
	ok = capsule.v.Mul(p.z3).Equal(p.v2.Add(cf.v1.Mul(h))) && ok
	ok = ParameterU().Mul(p.z3).Equal(p.u2.Add(p.u1.Mul(h))) && ok
	if !ok {
		return nil, fmt.Errorf("%w: correctness proof", ErrInvalidCapsuleFrag)
	}
	return &VerifiedCapsuleFrag{cf: cf}, nil
}

// Bytes returns the wire encoding.
func (cf *CapsuleFrag) Bytes() []byte {
	p := cf.proof
	return wire.NewBuilder(512).
		Bytes(1, cf.e1.Bytes()).
		Bytes(2, cf.v1.Bytes()).
		Bytes(3, cf.kfragID).
		Bytes(4, cf.precursor.Bytes()).
		Bytes(5, cf.capsuleID).
		Bytes(6, p.e2.Bytes()).
		Bytes(7, p.v2.Bytes()).
		Bytes(8, p.u2.Bytes()).
		Bytes(9, p.u1.Bytes()).
		Bytes(10, p.z3.Bytes()).
		Bytes(11, p.signature.Bytes()).
		Bytes(12, p.nodeID).
		Finish()
}

var cfragSchema = wire.Schema{
	1:  wire.BytesField,
	2:  wire.BytesField,
	3:  wire.BytesField,
	4:  wire.BytesField,
	5:  wire.BytesField,
	6:  wire.BytesField,
	7:  wire.BytesField,
	8:  wire.BytesField,
	9:  wire.BytesField,
	10: wire.BytesField,
	11: wire.BytesField,
	12: wire.BytesField,
}

// CapsuleFragFromBytes decodes a capsule fragment. The result must be
// checked with Verify before use.
func CapsuleFragFromBytes(b []byte) (*CapsuleFrag, error) {
	var (
		cf  CapsuleFrag
		err error
	)
	points := map[int]**curve.Point{
		1: &cf.e1, 2: &cf.v1, 4: &cf.precursor,
		6: &cf.proof.e2, 7: &cf.proof.v2, 8: &cf.proof.u2, 9: &cf.proof.u1,
	}
	seen := make(map[int]bool, 12)
	decodeErr := wire.DecodeSchema(b, cfragSchema, func(f wire.Field) error {
		n := int(f.Num)
		seen[n] = true
		if dst, ok := points[n]; ok {
			*dst, err = curve.NewPointFromBytes(f.Value)
			return err
		}
		switch n {
		case 3:
			if len(f.Value) != KeyFragIDSize {
				return errors.New("bad kfrag id length")
			}
			cf.kfragID = wire.Clone(f.Value)
		case 5:
			cf.capsuleID = wire.Clone(f.Value)
		case 10:
			cf.proof.z3, err = curve.NewScalarFromBytes(f.Value)
		case 11:
			cf.proof.signature, err = SignatureFromBytes(f.Value)
		case 12:
			cf.proof.nodeID = wire.Clone(f.Value)
		default:
			return fmt.Errorf("unknown field %d", n)
		}
		return err
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCapsuleFrag, decodeErr)
	}
	if len(seen) != 12 {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidCapsuleFrag)
	}
	return &cf, nil
}

// VerifiedCapsuleFrag is a capsule fragment that passed Verify.
type VerifiedCapsuleFrag struct {
	cf *CapsuleFrag
}

// CapsuleFrag returns the underlying fragment.
func (v *VerifiedCapsuleFrag) CapsuleFrag() *CapsuleFrag { return v.cf }

// OpenReencrypted combines verified capsule fragments into the capsule key.
// All fragments must come from the same key split; combining fewer than the
// split's threshold fails with ErrReconstructionFailed.
func (c *Capsule) OpenReencrypted(receiving *SecretKey, delegating *PublicKey, cfrags []*VerifiedCapsuleFrag) ([]byte, error) {
	if len(cfrags) == 0 {
		return nil, fmt.Errorf("%w: no capsule fragments", ErrReconstructionFailed)
	}
	if receiving == nil || delegating == nil {
		return nil, ErrInvalidKey
	}
	capsuleID := c.ID()
	precursor := cfrags[0].cf.precursor
	for i, v := range cfrags {
		if subtle.ConstantTimeCompare(v.cf.capsuleID, capsuleID) != 1 {
			return nil, ErrCapsuleMismatch
		}
		if !v.cf.precursor.Equal(precursor) {
			return nil, fmt.Errorf("%w: fragment %d is from a different key split", ErrReconstructionFailed, i)
		}
	}

	receivingPK := receiving.PublicKey().p
	dh := precursor.Mul(receiving.s)
	d := nonInteractiveD(precursor, receivingPK, dh)

	xs := make([]*curve.Scalar, len(cfrags))
	for i, v := range cfrags {
		xs[i] = shareIndex(precursor, receivingPK, dh, v.cf.kfragID)
	}

	var e, v *curve.Point
	for i, f := range cfrags {
		lambda, err := lagrangeAtZero(xs, i)
		if err != nil {
			return nil, err
		}
		ei, vi := f.cf.e1.Mul(lambda), f.cf.v1.Mul(lambda)
		if e == nil {
			e, v = ei, vi
			continue
		}
		e, v = e.Add(ei), v.Add(vi)
	}

	dInv, err := d.Invert()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconstructionFailed, err)
	}
	h := hashPoints(dstCapsule, nil, c.e, c.v)
	lhs := delegating.p.Mul(c.s.Mul(dInv))
	rhs := e.Mul(h).Add(v)
	if !lhs.Equal(rhs) {
		return nil, ErrReconstructionFailed
	}
	return deriveDEMKey(e.Add(v).Mul(d))
}

// lagrangeAtZero returns the Lagrange basis coefficient of xs[i] evaluated
// at zero.
func lagrangeAtZero(xs []*curve.Scalar, i int) (*curve.Scalar, error) {
	res := curve.NewScalarFromUint32(1)
	for j, xj := range xs {
		if j == i {
			continue
		}
		inv, err := xj.Sub(xs[i]).Invert()
		if err != nil {
			return nil, fmt.Errorf("%w: duplicate fragment", ErrReconstructionFailed)
		}
		res = res.Mul(xj).Mul(inv)
	}
	return res, nil
}
