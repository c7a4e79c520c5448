package pre

import (
	"context"

	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// NodeID is a re-encryption node's address: "0x" followed by the hex of the
// last 20 bytes of Keccak-256 over its uncompressed signing key.
type NodeID string

// ReencryptionRequest asks one node to re-encrypt a batch of capsules with
// the key fragment sealed to it.
type ReencryptionRequest struct {
	HRAC     hrac.HRAC
	Node     NodeID
	Capsules []*umbral.Capsule

	// KeyFrag is the node's sealed fragment copied from the routing map.
	KeyFrag *SealedKeyFrag

	// GrantorKey verifies the kfrag signature. DelegatingKey is the policy
	// encrypting key and ReceivingKey the grantee's encrypting key; both are
	// covered by the kfrag signature.
	GrantorKey    *umbral.PublicKey
	DelegatingKey *umbral.PublicKey
	ReceivingKey  *umbral.PublicKey
}

// ReencryptionResponse carries one capsule fragment per requested capsule,
// in request order.
type ReencryptionResponse struct {
	Node      NodeID
	Fragments []*umbral.CapsuleFrag
}

// FragmentProvider is the contract between a grantee and the re-encryption
// nodes of a policy.
//
// Concurrency: Implementations MUST be safe for concurrent use by multiple
// goroutines; a retrieval issues one request per node in parallel.
//
// Cancellation: Implementations MUST return promptly once ctx is done. The
// grantee cancels outstanding requests as soon as it holds enough
// fragments.
//
// Semantics: req.Node selects the node. A response MUST contain exactly one
// fragment per capsule in req.Capsules. Fragments are untrusted; the grantee
// verifies every one of them.
type FragmentProvider interface {
	Reencrypt(ctx context.Context, req *ReencryptionRequest) (*ReencryptionResponse, error)
}

// FragmentProviderFunc adapts a function to FragmentProvider.
type FragmentProviderFunc func(ctx context.Context, req *ReencryptionRequest) (*ReencryptionResponse, error)

// Reencrypt calls f.
func (f FragmentProviderFunc) Reencrypt(ctx context.Context, req *ReencryptionRequest) (*ReencryptionResponse, error) {
	return f(ctx, req)
}
