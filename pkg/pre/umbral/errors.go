package umbral

import "errors"

var (
	// ErrInvalidKey indicates malformed key material.
	ErrInvalidKey = errors.New("umbral: invalid key")

	// ErrInvalidCapsule indicates a capsule that fails its consistency check.
	ErrInvalidCapsule = errors.New("umbral: invalid capsule")

	// ErrInvalidKeyFrag indicates a key fragment that is malformed, not signed
	// by the expected grantor or inconsistent with its commitment.
	ErrInvalidKeyFrag = errors.New("umbral: invalid key fragment")

	// ErrInvalidCapsuleFrag indicates a capsule fragment whose correctness
	// proof or kfrag signature does not verify.
	ErrInvalidCapsuleFrag = errors.New("umbral: invalid capsule fragment")

	// ErrCapsuleMismatch indicates a capsule fragment computed over a
	// different capsule than the one being opened.
	ErrCapsuleMismatch = errors.New("umbral: capsule fragment does not match capsule")

	// ErrReconstructionFailed indicates that the supplied fragments do not
	// combine to the capsule's key, typically because fewer than the
	// threshold were provided.
	ErrReconstructionFailed = errors.New("umbral: reconstruction failed")

	// ErrDecryptionFailed indicates an authentication failure in the DEM.
	ErrDecryptionFailed = errors.New("umbral: decryption failed")
)
