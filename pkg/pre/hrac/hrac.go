// Package hrac derives the policy access identifier shared by a grantor, a
// grantee and the nodes serving their policy.
package hrac

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Size is the length of an HRAC in bytes.
const Size = 32

// HRAC is Keccak-256(grantor signing key || grantee encrypting key || label)
// with both keys in compressed form.
type HRAC [Size]byte

// ErrNilKey is returned when either key is missing.
var ErrNilKey = errors.New("hrac: nil public key")

// Derive computes the HRAC. It is a pure function of its inputs.
func Derive(grantorSigning, granteeEncrypting *umbral.PublicKey, label []byte) (HRAC, error) {
	if grantorSigning == nil || granteeEncrypting == nil {
		return HRAC{}, ErrNilKey
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(grantorSigning.Bytes())
	h.Write(granteeEncrypting.Bytes())
	h.Write(label)
	var out HRAC
	h.Sum(out[:0])
	return out, nil
}

// FromBytes decodes a 32-byte HRAC.
func FromBytes(b []byte) (HRAC, error) {
	var out HRAC
	if len(b) != Size {
		return out, fmt.Errorf("hrac: invalid length %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Parse decodes the hex form produced by String.
func Parse(s string) (HRAC, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return HRAC{}, fmt.Errorf("hrac: %w", err)
	}
	return FromBytes(b)
}

// Bytes returns a copy of the identifier.
func (h HRAC) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// String returns the lowercase hex form.
func (h HRAC) String() string {
	return hex.EncodeToString(h[:])
}

// Equal compares two identifiers in constant time.
func (h HRAC) Equal(o HRAC) bool {
	return subtle.ConstantTimeCompare(h[:], o[:]) == 1
}

// IsZero reports whether h is the zero value.
func (h HRAC) IsZero() bool {
	return h.Equal(HRAC{})
}
