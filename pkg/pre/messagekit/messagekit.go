// Package messagekit is the originator side: it encrypts plaintexts under a
// policy encrypting key and signs the result.
package messagekit

import (
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// MaxPlaintextSize is the largest plaintext Encapsulate accepts.
const MaxPlaintextSize = pre.DefaultMaxPlaintextSize

// MessageKit is an encrypted message plus the originator's signature over
// capsule || ciphertext. It is immutable after construction.
type MessageKit struct {
	Capsule    *umbral.Capsule
	Ciphertext []byte
	SenderKey  *umbral.PublicKey
	Signature  *umbral.Signature
}

// Encapsulate encrypts plaintext under policyKey with a fresh capsule and
// signs the kit with originator.
func Encapsulate(policyKey *umbral.PublicKey, plaintext []byte, originator *umbral.Signer) (*MessageKit, error) {
	return encapsulate(policyKey, plaintext, originator, MaxPlaintextSize)
}

func encapsulate(policyKey *umbral.PublicKey, plaintext []byte, originator *umbral.Signer, limit int) (*MessageKit, error) {
	if len(plaintext) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", pre.ErrPlaintextTooLarge, len(plaintext), limit)
	}
	if policyKey == nil || originator == nil {
		return nil, fmt.Errorf("%w: missing policy key or signer", pre.ErrEncryptionFailure)
	}
	capsule, ct, err := umbral.Encrypt(policyKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pre.ErrEncryptionFailure, err)
	}
	kit := &MessageKit{Capsule: capsule, Ciphertext: ct, SenderKey: originator.VerifyingKey()}
	kit.Signature = originator.Sign(kit.signedBytes())
	return kit, nil
}

func (k *MessageKit) signedBytes() []byte {
	out := make([]byte, 0, umbral.CapsuleSize+len(k.Ciphertext))
	out = append(out, k.Capsule.Bytes()...)
	return append(out, k.Ciphertext...)
}

// VerifySignature checks the signature against originator, or against the
// embedded sender key when originator is nil.
func (k *MessageKit) VerifySignature(originator *umbral.PublicKey) error {
	if originator == nil {
		originator = k.SenderKey
	}
	if originator == nil || !k.SenderKey.Equal(originator) {
		return pre.ErrSignatureMismatch
	}
	if !k.Signature.Verify(originator, k.signedBytes()) {
		return pre.ErrSignatureMismatch
	}
	return nil
}

// Bytes returns the wire encoding.
func (k *MessageKit) Bytes() []byte {
	return wire.NewBuilder(256+len(k.Ciphertext)).
		Bytes(1, k.Capsule.Bytes()).
		Bytes(2, k.Ciphertext).
		Bytes(3, k.SenderKey.Bytes()).
		Bytes(4, k.Signature.Bytes()).
		Finish()
}

var kitSchema = wire.Schema{
	1: wire.BytesField,
	2: wire.BytesField,
	3: wire.BytesField,
	4: wire.BytesField,
}

// FromBytes decodes a message kit. The capsule is verified; the signature
// is not.
func FromBytes(b []byte) (*MessageKit, error) {
	var k MessageKit
	err := wire.DecodeSchema(b, kitSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			k.Capsule, err = umbral.CapsuleFromBytes(f.Value)
		case 2:
			k.Ciphertext = wire.Clone(f.Value)
		case 3:
			k.SenderKey, err = umbral.PublicKeyFromBytes(f.Value)
		case 4:
			k.Signature, err = umbral.SignatureFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: message kit: %v", pre.ErrInvalidRequest, err)
	}
	if k.Capsule == nil || k.SenderKey == nil || k.Signature == nil || len(k.Ciphertext) < umbral.CiphertextOverhead {
		return nil, fmt.Errorf("%w: message kit: missing fields", pre.ErrInvalidRequest)
	}
	return &k, nil
}

// Encryptor is an originator bound to one policy key.
type Encryptor struct {
	policyKey *umbral.PublicKey
	signer    *umbral.Signer
	limit     int
}

// NewEncryptor returns an encryptor for policyKey. A limit of zero selects
// MaxPlaintextSize.
func NewEncryptor(policyKey *umbral.PublicKey, signer *umbral.Signer, limit int) (*Encryptor, error) {
	if policyKey == nil || signer == nil {
		return nil, errors.New("messagekit: policy key and signer are required")
	}
	if limit <= 0 {
		limit = MaxPlaintextSize
	}
	return &Encryptor{policyKey: policyKey, signer: signer, limit: limit}, nil
}

// Encrypt encapsulates plaintext under the bound policy key.
func (e *Encryptor) Encrypt(plaintext []byte) (*MessageKit, error) {
	return encapsulate(e.policyKey, plaintext, e.signer, e.limit)
}

// PolicyKey returns the bound policy encrypting key.
func (e *Encryptor) PolicyKey() *umbral.PublicKey { return e.policyKey }

// VerifyingKey returns the originator's signature verification key.
func (e *Encryptor) VerifyingKey() *umbral.PublicKey { return e.signer.VerifyingKey() }
