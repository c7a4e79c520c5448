// Package identity holds the long-lived key material of a participant:
// a signing key pair, an encrypting key pair and the seed from which
// per-label policy keys are derived.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// AddressSize is the length of a node address in bytes.
const AddressSize = 20

// ErrMalformed is returned when decoding an identity or card fails.
var ErrMalformed = errors.New("identity: malformed encoding")

// Identity is a participant's private key material. It is immutable after
// construction apart from Zeroize.
type Identity struct {
	signing    *umbral.SecretKey
	encrypting *umbral.SecretKey
	delegating *umbral.SecretKeyFactory
}

// Generate returns an identity with fresh random keys.
func Generate() (*Identity, error) {
	signing, err := umbral.GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	encrypting, err := umbral.GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	delegating, err := umbral.NewSecretKeyFactory()
	if err != nil {
		return nil, err
	}
	return &Identity{signing: signing, encrypting: encrypting, delegating: delegating}, nil
}

// Card returns the public half of the identity.
func (id *Identity) Card() *Card {
	return &Card{
		SigningKey:    id.signing.PublicKey(),
		EncryptingKey: id.encrypting.PublicKey(),
	}
}

// Signer returns a signer over the identity's signing key.
func (id *Identity) Signer() *umbral.Signer {
	return umbral.NewSigner(id.signing)
}

// EncryptingKey returns the secret encrypting key. Callers must not
// zeroize it; use Identity.Zeroize instead.
func (id *Identity) EncryptingKey() *umbral.SecretKey {
	return id.encrypting
}

// DerivePolicyKey returns the delegating secret key for label. The same
// identity and label always derive the same key.
func (id *Identity) DerivePolicyKey(label []byte) (*umbral.SecretKey, error) {
	return id.delegating.MakeKey(label)
}

// PolicyPublicKey returns the public delegating key for label.
func (id *Identity) PolicyPublicKey(label []byte) (*umbral.PublicKey, error) {
	sk, err := id.DerivePolicyKey(label)
	if err != nil {
		return nil, err
	}
	defer sk.Zeroize()
	return sk.PublicKey(), nil
}

// NodeID returns the address derived from the signing key.
func (id *Identity) NodeID() pre.NodeID {
	return id.Card().NodeID()
}

// Zeroize clears all secret material.
func (id *Identity) Zeroize() {
	id.signing.Zeroize()
	id.encrypting.Zeroize()
	id.delegating.Zeroize()
}

func (id *Identity) String() string {
	return fmt.Sprintf("identity.Identity(%s)", id.NodeID())
}

// Bytes returns the secret encoding. Callers should zeroize the result.
func (id *Identity) Bytes() []byte {
	s, e, d := id.signing.Bytes(), id.encrypting.Bytes(), id.delegating.Bytes()
	defer pre.ZeroizeBytes(s)
	defer pre.ZeroizeBytes(e)
	defer pre.ZeroizeBytes(d)
	return wire.NewBuilder(128).
		Bytes(1, s).
		Bytes(2, e).
		Bytes(3, d).
		Finish()
}

var identitySchema = wire.Schema{
	1: wire.BytesField,
	2: wire.BytesField,
	3: wire.BytesField,
}

// FromBytes restores an identity encoded with Bytes.
func FromBytes(b []byte) (*Identity, error) {
	var id Identity
	err := wire.DecodeSchema(b, identitySchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			id.signing, err = umbral.SecretKeyFromBytes(f.Value)
		case 2:
			id.encrypting, err = umbral.SecretKeyFromBytes(f.Value)
		case 3:
			id.delegating, err = umbral.SecretKeyFactoryFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if id.signing == nil || id.encrypting == nil || id.delegating == nil {
		return nil, fmt.Errorf("%w: missing keys", ErrMalformed)
	}
	return &id, nil
}

// Card is the public part of an Identity.
type Card struct {
	SigningKey    *umbral.PublicKey
	EncryptingKey *umbral.PublicKey
}

// NodeID returns "0x" followed by the hex of the last 20 bytes of
// Keccak-256 over the uncompressed signing key without its prefix byte.
func (c *Card) NodeID() pre.NodeID {
	return pre.NodeID("0x" + hex.EncodeToString(Address(c.SigningKey)))
}

// Address returns the 20-byte address of a signing key.
func Address(pk *umbral.PublicKey) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(pk.Point().UncompressedBytes()[1:])
	sum := h.Sum(nil)
	return sum[len(sum)-AddressSize:]
}

// Bytes returns signing key || encrypting key.
func (c *Card) Bytes() []byte {
	out := make([]byte, 0, 66)
	out = append(out, c.SigningKey.Bytes()...)
	return append(out, c.EncryptingKey.Bytes()...)
}

// CardFromBytes decodes a card encoded with Bytes.
func CardFromBytes(b []byte) (*Card, error) {
	if len(b) != 66 {
		return nil, fmt.Errorf("%w: card length %d", ErrMalformed, len(b))
	}
	signing, err := umbral.PublicKeyFromBytes(b[:33])
	if err != nil {
		return nil, fmt.Errorf("%w: signing key: %v", ErrMalformed, err)
	}
	encrypting, err := umbral.PublicKeyFromBytes(b[33:])
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting key: %v", ErrMalformed, err)
	}
	return &Card{SigningKey: signing, EncryptingKey: encrypting}, nil
}
