// Package curve provides the secp256k1 scalar and point types used by the
// proxy re-encryption protocol.
//
// The package is a thin layer over github.com/btcsuite/btcd/btcec/v2. It
// keeps every value in a canonical form so that higher layers can serialize,
// compare and hash points and scalars without caring about Jacobian
// coordinates or modular reduction.
//
// # Key Types
//
//   - Scalar: an element of the scalar field (integers modulo the group order)
//   - Point: a point on secp256k1, always held in affine form
//
// # Encoding
//
// Scalars encode to 32 big-endian bytes and points to 33-byte compressed
// SEC1 form. NewScalarFromBytes and NewPointFromBytes reject anything that is
// not canonical, including the point at infinity.
//
// # Hashing
//
// HashToScalar and HashToPoint take a domain separation tag as their first
// argument. Every protocol hash in the module uses its own tag:
//
//	h := curve.HashToScalar("umbral/capsule", e.Bytes(), v.Bytes())
//
// # Security Considerations
//
//   - Point and scalar arithmetic use the NonConst variants of btcec. Do not
//     use them where the scalar is secret and an attacker can time the
//     operation with sub-microsecond precision.
//   - Call Zeroize on scalars that held secret material once they are no
//     longer needed.
package curve
