package umbral

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Signer produces deterministic (RFC 6979) ECDSA signatures over the
// SHA-256 digest of a message.
type Signer struct {
	priv *btcec.PrivateKey
	vk   *PublicKey
}

// NewSigner wraps sk. The signer keeps its own copy of the key.
func NewSigner(sk *SecretKey) *Signer {
	b := sk.Bytes()
	defer zeroizeBytes(b)
	priv, _ := btcec.PrivKeyFromBytes(b)
	return &Signer{priv: priv, vk: sk.PublicKey()}
}

// Sign signs msg.
func (s *Signer) Sign(msg []byte) *Signature {
	digest := sha256.Sum256(msg)
	return &Signature{sig: ecdsa.Sign(s.priv, digest[:])}
}

// VerifyingKey returns the public key that verifies this signer's
// signatures.
func (s *Signer) VerifyingKey() *PublicKey {
	return s.vk
}

// Zeroize clears the signing key.
func (s *Signer) Zeroize() {
	if s == nil || s.priv == nil {
		return
	}
	s.priv.Zero()
}

// Signature is an ECDSA signature over secp256k1.
type Signature struct {
	sig *ecdsa.Signature
}

// SignatureFromBytes parses a DER-encoded signature.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) == 0 {
		return nil, errors.New("umbral: empty signature")
	}
	sig, err := ecdsa.ParseDERSignature(b)
	if err != nil {
		return nil, fmt.Errorf("umbral: parse signature: %w", err)
	}
	return &Signature{sig: sig}, nil
}

// Verify reports whether the signature over msg verifies under vk.
func (s *Signature) Verify(vk *PublicKey, msg []byte) bool {
	if s == nil || s.sig == nil || vk == nil {
		return false
	}
	pub, err := vk.p.PubKey()
	if err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return s.sig.Verify(digest[:], pub)
}

// Bytes returns the DER encoding.
func (s *Signature) Bytes() []byte {
	return s.sig.Serialize()
}
