package umbral

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

const (
	// KeyFragIDSize is the length of a key fragment identifier.
	KeyFragIDSize = 32

	// MaxShares is the largest number of fragments a key can be split into.
	MaxShares = 255
)

// KeyFrag is one share of a re-encryption key from a delegating key to a
// receiving key. It is bound to exactly one node id by the grantor's
// signature.
type KeyFrag struct {
	id         []byte
	key        *curve.Scalar
	precursor  *curve.Point
	commitment *curve.Point
	nodeID     []byte
	signature  *Signature
}

// KeyFragParams configures GenerateKeyFrags.
type KeyFragParams struct {
	// Delegating is the secret key whose capsules will be re-encrypted.
	Delegating *SecretKey
	// Receiving is the public key that will open re-encrypted capsules.
	Receiving *PublicKey
	// Signer signs every fragment; its verifying key is published to nodes
	// and to the receiver.
	Signer *Signer
	// Threshold is the number of fragments required to open a capsule.
	Threshold int
	// NodeIDs lists one binding per fragment; len(NodeIDs) is the number of
	// shares.
	NodeIDs [][]byte
}

// GenerateKeyFrags splits the re-encryption key from p.Delegating to
// p.Receiving into len(p.NodeIDs) fragments with threshold p.Threshold.
func GenerateKeyFrags(p *KeyFragParams) ([]*KeyFrag, error) {
	if p == nil || p.Delegating == nil || p.Receiving == nil || p.Signer == nil {
		return nil, errors.New("umbral: incomplete key fragment parameters")
	}
	shares := len(p.NodeIDs)
	if p.Threshold < 1 || p.Threshold > shares || shares > MaxShares {
		return nil, fmt.Errorf("umbral: invalid threshold %d of %d", p.Threshold, shares)
	}
	for i, id := range p.NodeIDs {
		if len(id) == 0 {
			return nil, fmt.Errorf("umbral: empty node id at index %d", i)
		}
	}

	delegatingPK := p.Delegating.PublicKey()

	xA, err := curve.RandomScalar()
	if err != nil {
		return nil, err
	}
	defer xA.Zeroize()
	precursor := curve.BaseMul(xA)
	dh := p.Receiving.p.Mul(xA)
	d := nonInteractiveD(precursor, p.Receiving.p, dh)
	dInv, err := d.Invert()
	if err != nil {
		return nil, err
	}

	coeffs := make([]*curve.Scalar, p.Threshold)
	coeffs[0] = p.Delegating.s.Mul(dInv)
	for i := 1; i < p.Threshold; i++ {
		if coeffs[i], err = curve.RandomScalar(); err != nil {
			return nil, err
		}
	}
	defer func() {
		for _, c := range coeffs {
			c.Zeroize()
		}
	}()

	u := ParameterU()
	kfrags := make([]*KeyFrag, 0, shares)
	for _, nodeID := range p.NodeIDs {
		id := make([]byte, KeyFragIDSize)
		if _, err := io.ReadFull(rand.Reader, id); err != nil {
			return nil, fmt.Errorf("umbral: kfrag id: %w", err)
		}
		x := shareIndex(precursor, p.Receiving.p, dh, id)
		rk := evalPoly(coeffs, x)
		kf := &KeyFrag{
			id:         id,
			key:        rk,
			precursor:  precursor,
			commitment: u.Mul(rk),
			nodeID:     wire.Clone(nodeID),
		}
		kf.signature = p.Signer.Sign(kfragMessage(kf.id, delegatingPK, p.Receiving, kf.commitment, kf.precursor, kf.nodeID))
		kfrags = append(kfrags, kf)
	}
	return kfrags, nil
}

// evalPoly evaluates the polynomial with the given coefficients at x using
// Horner's rule. The result never aliases a coefficient.
func evalPoly(coeffs []*curve.Scalar, x *curve.Scalar) *curve.Scalar {
	acc := new(curve.Scalar).Add(coeffs[len(coeffs)-1])
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(x).Add(coeffs[i])
	}
	return acc
}

func kfragMessage(id []byte, delegating, receiving *PublicKey, commitment, precursor *curve.Point, nodeID []byte) []byte {
	return wire.NewBuilder(256).
		Bytes(1, id).
		Bytes(2, delegating.Bytes()).
		Bytes(3, receiving.Bytes()).
		Bytes(4, commitment.Bytes()).
		Bytes(5, precursor.Bytes()).
		Bytes(6, nodeID).
		Finish()
}

// ID returns the fragment identifier.
func (k *KeyFrag) ID() []byte { return wire.Clone(k.id) }

// NodeID returns the node the fragment is bound to.
func (k *KeyFrag) NodeID() []byte { return wire.Clone(k.nodeID) }

// Commitment returns rk*U. The grantor publishes it so receivers can check
// that a capsule fragment came from this key fragment.
func (k *KeyFrag) Commitment() *curve.Point { return k.commitment }

// Precursor returns the ephemeral point X_A shared by every fragment of one
// split.
func (k *KeyFrag) Precursor() *curve.Point { return k.precursor }

// Verify checks the grantor signature and that the secret share matches its
// commitment.
func (k *KeyFrag) Verify(verifyingKey, delegating, receiving *PublicKey) error {
	if verifyingKey == nil || delegating == nil || receiving == nil {
		return fmt.Errorf("%w: missing verification keys", ErrInvalidKeyFrag)
	}
	if !ParameterU().Mul(k.key).Equal(k.commitment) {
		return fmt.Errorf("%w: commitment mismatch", ErrInvalidKeyFrag)
	}
	msg := kfragMessage(k.id, delegating, receiving, k.commitment, k.precursor, k.nodeID)
	if !k.signature.Verify(verifyingKey, msg) {
		return fmt.Errorf("%w: bad signature", ErrInvalidKeyFrag)
	}
	return nil
}

// BoundTo reports whether the fragment is bound to nodeID.
func (k *KeyFrag) BoundTo(nodeID []byte) bool {
	return subtle.ConstantTimeCompare(k.nodeID, nodeID) == 1
}

// Zeroize clears the secret share.
func (k *KeyFrag) Zeroize() {
	if k == nil || k.key == nil {
		return
	}
	k.key.Zeroize()
}

func (k *KeyFrag) String() string {
	return "umbral.KeyFrag(REDACTED)"
}

// Bytes returns the wire encoding, including the secret share. Callers
// should encrypt the result before it leaves the process.
func (k *KeyFrag) Bytes() []byte {
	key := k.key.Bytes()
	defer zeroizeBytes(key)
	out := wire.NewBuilder(256).
		Bytes(1, k.id).
		Bytes(2, key).
		Bytes(3, k.precursor.Bytes()).
		Bytes(4, k.commitment.Bytes()).
		Bytes(5, k.nodeID).
		Bytes(6, k.signature.Bytes()).
		Finish()
	return out
}

var kfragSchema = wire.Schema{
	1: wire.BytesField,
	2: wire.BytesField,
	3: wire.BytesField,
	4: wire.BytesField,
	5: wire.BytesField,
	6: wire.BytesField,
}

// KeyFragFromBytes decodes a key fragment. The result still has to be
// checked with Verify.
func KeyFragFromBytes(b []byte) (*KeyFrag, error) {
	var (
		k   KeyFrag
		err error
	)
	seen := 0
	decodeErr := wire.DecodeSchema(b, kfragSchema, func(f wire.Field) error {
		switch f.Num {
		case 1:
			if len(f.Value) != KeyFragIDSize {
				return errors.New("bad id length")
			}
			k.id = wire.Clone(f.Value)
		case 2:
			k.key, err = curve.NewScalarFromBytes(f.Value)
		case 3:
			k.precursor, err = curve.NewPointFromBytes(f.Value)
		case 4:
			k.commitment, err = curve.NewPointFromBytes(f.Value)
		case 5:
			k.nodeID = wire.Clone(f.Value)
		case 6:
			k.signature, err = SignatureFromBytes(f.Value)
		default:
			return fmt.Errorf("unknown field %d", f.Num)
		}
		seen++
		return err
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFrag, decodeErr)
	}
	if seen != 6 || k.id == nil || k.key == nil || k.precursor == nil || k.commitment == nil || len(k.nodeID) == 0 || k.signature == nil {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidKeyFrag)
	}
	return &k, nil
}
