package umbral

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

// SecretKey is a non-zero secp256k1 scalar.
type SecretKey struct {
	s *curve.Scalar
}

// GenerateSecretKey returns a fresh random secret key.
func GenerateSecretKey() (*SecretKey, error) {
	s, err := curve.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	return &SecretKey{s: s}, nil
}

// SecretKeyFromBytes decodes a 32-byte secret key.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	s, err := curve.NewScalarFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%w: zero secret key", ErrInvalidKey)
	}
	return &SecretKey{s: s}, nil
}

// PublicKey returns the matching public key.
func (k *SecretKey) PublicKey() *PublicKey {
	return &PublicKey{p: curve.BaseMul(k.s)}
}

// Bytes returns the 32-byte encoding. Callers own the returned slice and
// should zeroize it when done.
func (k *SecretKey) Bytes() []byte {
	return k.s.Bytes()
}

// Zeroize clears the key. The key must not be used afterwards.
func (k *SecretKey) Zeroize() {
	if k == nil || k.s == nil {
		return
	}
	k.s.Zeroize()
}

func (k *SecretKey) String() string {
	return "umbral.SecretKey(REDACTED)"
}

// PublicKey is a secp256k1 point that is not the identity.
type PublicKey struct {
	p *curve.Point
}

// PublicKeyFromBytes decodes a 33-byte compressed public key.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	p, err := curve.NewPointFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &PublicKey{p: p}, nil
}

// Bytes returns the 33-byte compressed encoding.
func (k *PublicKey) Bytes() []byte {
	return k.p.Bytes()
}

// Point exposes the underlying curve point.
func (k *PublicKey) Point() *curve.Point {
	return k.p
}

// Equal reports whether two public keys are the same.
func (k *PublicKey) Equal(o *PublicKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.p.Equal(o.p)
}

// String returns the lowercase hex encoding of the compressed key.
func (k *PublicKey) String() string {
	if k == nil {
		return "<nil>"
	}
	return hex.EncodeToString(k.p.Bytes())
}

// SecretKeyFactory derives labelled secret keys from a seed. The same seed
// and label always produce the same key, so public keys for a label can be
// handed out before the secret key is ever needed.
type SecretKeyFactory struct {
	seed []byte
}

// SeedSize is the length of a SecretKeyFactory seed.
const SeedSize = 32

// NewSecretKeyFactory returns a factory with a random seed.
func NewSecretKeyFactory() (*SecretKeyFactory, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("generate key factory seed: %w", err)
	}
	return &SecretKeyFactory{seed: seed}, nil
}

// SecretKeyFactoryFromBytes restores a factory from its seed.
func SecretKeyFactoryFromBytes(seed []byte) (*SecretKeyFactory, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidKey, SeedSize, len(seed))
	}
	out := make([]byte, SeedSize)
	copy(out, seed)
	return &SecretKeyFactory{seed: out}, nil
}

// MakeKey derives the secret key for label.
func (f *SecretKeyFactory) MakeKey(label []byte) (*SecretKey, error) {
	info := make([]byte, 0, len(dstKeyDerivation)+len(label))
	info = append(info, dstKeyDerivation...)
	info = append(info, label...)
	s, err := curve.RandomScalarFrom(hkdf.New(sha256.New, f.seed, nil, info))
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &SecretKey{s: s}, nil
}

// Bytes returns a copy of the seed.
func (f *SecretKeyFactory) Bytes() []byte {
	out := make([]byte, len(f.seed))
	copy(out, f.seed)
	return out
}

// Zeroize clears the seed.
func (f *SecretKeyFactory) Zeroize() {
	if f == nil {
		return
	}
	zeroizeBytes(f.seed)
}

func (f *SecretKeyFactory) String() string {
	return "umbral.SecretKeyFactory(REDACTED)"
}
