package treasuremap

import (
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// EncryptedMap is a Map encrypted for the grantee and signed by the
// grantor. The HRAC stays readable so the map can be stored and looked up
// without decrypting it.
type EncryptedMap struct {
	HRAC       hrac.HRAC
	Capsule    *umbral.Capsule
	Ciphertext []byte
	Signature  *umbral.Signature
}

// Encrypt seals m for grantee and signs the result with the grantor's
// signer. The signer's verifying key must be m.GrantorKey.
func Encrypt(m *Map, grantor *umbral.Signer, grantee *umbral.PublicKey) (*EncryptedMap, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if !grantor.VerifyingKey().Equal(m.GrantorKey) {
		return nil, errors.New("treasuremap: signer does not match grantor key")
	}
	capsule, ct, err := umbral.Encrypt(grantee, m.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pre.ErrEncryptionFailure, err)
	}
	e := &EncryptedMap{HRAC: m.HRAC, Capsule: capsule, Ciphertext: ct}
	e.Signature = grantor.Sign(e.signedBytes())
	return e, nil
}

func (e *EncryptedMap) signedBytes() []byte {
	return wire.NewBuilder(64+umbral.CapsuleSize+len(e.Ciphertext)).
		Bytes(1, e.HRAC[:]).
		Bytes(2, e.Capsule.Bytes()).
		Bytes(3, e.Ciphertext).
		Finish()
}

// Verify checks the grantor's signature.
func (e *EncryptedMap) Verify(grantor *umbral.PublicKey) error {
	if e.Signature == nil || !e.Signature.Verify(grantor, e.signedBytes()) {
		return pre.ErrBadSignature
	}
	return nil
}

// Decrypt verifies the signature and decrypts the map with the grantee's
// encrypting key.
func (e *EncryptedMap) Decrypt(grantee *umbral.SecretKey, grantor *umbral.PublicKey) (*Map, error) {
	if err := e.Verify(grantor); err != nil {
		return nil, err
	}
	pt, err := umbral.DecryptOriginal(grantee, e.Capsule, e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("treasuremap: decrypt: %w", err)
	}
	m, err := FromBytes(pt)
	if err != nil {
		return nil, err
	}
	if !m.HRAC.Equal(e.HRAC) || !m.GrantorKey.Equal(grantor) {
		return nil, fmt.Errorf("%w: map contents do not match envelope", pre.ErrBadSignature)
	}
	return m, nil
}

// Bytes returns the wire encoding.
func (e *EncryptedMap) Bytes() []byte {
	return wire.NewBuilder(128+umbral.CapsuleSize+len(e.Ciphertext)).
		Bytes(1, e.HRAC[:]).
		Bytes(2, e.Capsule.Bytes()).
		Bytes(3, e.Ciphertext).
		Bytes(4, e.Signature.Bytes()).
		Finish()
}

var encryptedMapSchema = wire.Schema{
	1: wire.BytesField,
	2: wire.BytesField,
	3: wire.BytesField,
	4: wire.BytesField,
}

// EncryptedMapFromBytes decodes an encrypted map without decrypting it.
func EncryptedMapFromBytes(b []byte) (*EncryptedMap, error) {
	var e EncryptedMap
	err := wire.DecodeSchema(b, encryptedMapSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			e.HRAC, err = hrac.FromBytes(f.Value)
		case 2:
			e.Capsule, err = umbral.CapsuleFromBytes(f.Value)
		case 3:
			e.Ciphertext = wire.Clone(f.Value)
		case 4:
			e.Signature, err = umbral.SignatureFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: treasure map: %v", pre.ErrInvalidRequest, err)
	}
	if e.HRAC.IsZero() || e.Capsule == nil || e.Signature == nil {
		return nil, fmt.Errorf("%w: treasure map: missing fields", pre.ErrInvalidRequest)
	}
	return &e, nil
}
