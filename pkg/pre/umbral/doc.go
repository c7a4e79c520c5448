// Package umbral implements threshold proxy re-encryption on secp256k1.
//
// A delegating key pair (a, A) encrypts data to capsules. The holder of a
// can split a re-encryption key for a receiving public key B into N key
// fragments, any M of which allow re-encryption nodes to transform a capsule
// into capsule fragments. The holder of b combines M verified capsule
// fragments to recover the symmetric key. No single node learns anything
// about the plaintext, and fewer than M fragments reveal nothing about the
// key.
//
// # Objects
//
//   - Capsule: the key encapsulation (E, V, s) produced by Encrypt.
//   - KeyFrag: one share of the re-encryption key, bound to a node id and
//     signed by the grantor.
//   - CapsuleFrag: the result of Reencrypt, carrying a non-interactive proof
//     that it was computed with the committed key fragment.
//   - VerifiedCapsuleFrag: a CapsuleFrag that passed Verify. Only verified
//     fragments are accepted by OpenReencrypted.
//
// # Data encapsulation
//
// The shared point is expanded with HKDF-SHA256 into an XChaCha20-Poly1305
// key. The serialized capsule is the associated data of every ciphertext, so
// a ciphertext cannot be replayed under a different capsule.
//
// # Encoding
//
// Keys use 32-byte scalars and 33-byte compressed points. Capsules are a
// fixed 98-byte concatenation; fragments use the protobuf wire format from
// internal/wire.
package umbral
