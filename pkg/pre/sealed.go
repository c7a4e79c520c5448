package pre

import (
	"errors"
	"fmt"
	"time"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// KeyFragGrant is what a grantor hands to one node: the key fragment plus
// the policy facts the node enforces.
type KeyFragGrant struct {
	HRAC       hrac.HRAC
	Expiration time.Time
	KeyFrag    *umbral.KeyFrag
}

var (
	grantSchema = wire.Schema{
		1: wire.BytesField,
		2: wire.VarintField,
		3: wire.BytesField,
	}
	sealedSchema = wire.Schema{
		1: wire.BytesField,
		2: wire.BytesField,
	}
)

// SealedKeyFrag is a KeyFragGrant encrypted to a node's encrypting key.
type SealedKeyFrag struct {
	Capsule    *umbral.Capsule
	Ciphertext []byte
}

// SealKeyFrag encrypts g to nodeKey.
func SealKeyFrag(nodeKey *umbral.PublicKey, g *KeyFragGrant) (*SealedKeyFrag, error) {
	if g == nil || g.KeyFrag == nil {
		return nil, errors.New("pre: nil key fragment grant")
	}
	kf := g.KeyFrag.Bytes()
	defer ZeroizeBytes(kf)
	payload := wire.NewBuilder(len(kf)+64).
		Bytes(1, g.HRAC[:]).
		Int(2, g.Expiration.UnixNano()).
		Bytes(3, kf).
		Finish()
	defer ZeroizeBytes(payload)

	capsule, ct, err := umbral.Encrypt(nodeKey, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: seal kfrag: %v", ErrEncryptionFailure, err)
	}
	return &SealedKeyFrag{Capsule: capsule, Ciphertext: ct}, nil
}

// Open decrypts the grant with the node's encrypting secret key. The key
// fragment is not verified here.
func (s *SealedKeyFrag) Open(sk *umbral.SecretKey) (*KeyFragGrant, error) {
	payload, err := umbral.DecryptOriginal(sk, s.Capsule, s.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("open sealed kfrag: %w", err)
	}
	defer ZeroizeBytes(payload)

	var (
		g       KeyFragGrant
		haveExp bool
	)
	err = wire.DecodeSchema(payload, grantSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			g.HRAC, err = hrac.FromBytes(f.Value)
		case 2:
			g.Expiration = time.Unix(0, f.Int()).UTC()
			haveExp = true
		case 3:
			g.KeyFrag, err = umbral.KeyFragFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode sealed kfrag: %w", err)
	}
	if g.KeyFrag == nil || !haveExp || g.HRAC.IsZero() {
		return nil, errors.New("decode sealed kfrag: missing fields")
	}
	return &g, nil
}

// Bytes returns the wire encoding.
func (s *SealedKeyFrag) Bytes() []byte {
	return wire.NewBuilder(umbral.CapsuleSize+len(s.Ciphertext)+8).
		Bytes(1, s.Capsule.Bytes()).
		Bytes(2, s.Ciphertext).
		Finish()
}

// SealedKeyFragFromBytes decodes a sealed fragment.
func SealedKeyFragFromBytes(b []byte) (*SealedKeyFrag, error) {
	var s SealedKeyFrag
	err := wire.DecodeSchema(b, sealedSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			s.Capsule, err = umbral.CapsuleFromBytes(f.Value)
		case 2:
			s.Ciphertext = wire.Clone(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode sealed kfrag: %w", err)
	}
	if s.Capsule == nil || len(s.Ciphertext) == 0 {
		return nil, errors.New("decode sealed kfrag: missing fields")
	}
	return &s, nil
}
