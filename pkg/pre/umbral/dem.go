package umbral

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

// deriveDEMKey expands the shared point into an XChaCha20-Poly1305 key.
func deriveDEMKey(shared *curve.Point) ([]byte, error) {
	ikm := shared.Bytes()
	defer zeroizeBytes(ikm)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(infoDEM)), key); err != nil {
		return nil, fmt.Errorf("derive dem key: %w", err)
	}
	return key, nil
}

// sealDEM encrypts plaintext and returns nonce || ciphertext || tag.
func sealDEM(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("dem: %w", err)
	}
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("dem nonce: %w", err)
	}
	return aead.Seal(out, out[:aead.NonceSize()], plaintext, aad), nil
}

func openDEM(key, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("dem: %w", err)
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}

// CiphertextOverhead is the number of bytes the DEM adds to a plaintext.
const CiphertextOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Encrypt encapsulates a fresh key for pk and encrypts plaintext under it.
func Encrypt(pk *PublicKey, plaintext []byte) (*Capsule, []byte, error) {
	if pk == nil || pk.p == nil || pk.p.IsInfinity() {
		return nil, nil, ErrInvalidKey
	}
	capsule, shared, err := newCapsule(pk)
	if err != nil {
		return nil, nil, err
	}
	key, err := deriveDEMKey(shared)
	if err != nil {
		return nil, nil, err
	}
	defer zeroizeBytes(key)
	ct, err := sealDEM(key, plaintext, capsule.Bytes())
	if err != nil {
		return nil, nil, err
	}
	return capsule, ct, nil
}

// DecryptOriginal decrypts a ciphertext with the delegating secret key.
func DecryptOriginal(sk *SecretKey, capsule *Capsule, ciphertext []byte) ([]byte, error) {
	key, err := capsule.OpenOriginal(sk)
	if err != nil {
		return nil, err
	}
	defer zeroizeBytes(key)
	return openDEM(key, ciphertext, capsule.Bytes())
}

// DecryptReencrypted combines verified capsule fragments and decrypts the
// ciphertext with the receiving secret key.
func DecryptReencrypted(receiving *SecretKey, delegating *PublicKey, capsule *Capsule, cfrags []*VerifiedCapsuleFrag, ciphertext []byte) ([]byte, error) {
	key, err := capsule.OpenReencrypted(receiving, delegating, cfrags)
	if err != nil {
		return nil, err
	}
	defer zeroizeBytes(key)
	return openDEM(key, ciphertext, capsule.Bytes())
}
