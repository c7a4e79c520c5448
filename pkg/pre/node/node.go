// Package node implements a re-encryption node: it opens the key fragment
// sealed to it, checks that the fragment is bound to it and still valid,
// and re-encrypts the requested capsules.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Node serves re-encryption requests. It implements pre.FragmentProvider
// for requests addressed to itself.
type Node struct {
	id  *identity.Identity
	nid pre.NodeID
	log logging.Logger
	now func() time.Time
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(n *Node) { n.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// New returns a node acting with identity id.
func New(id *identity.Identity, opts ...Option) *Node {
	n := &Node{id: id, nid: id.NodeID(), log: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(n)
	}
	n.log = n.log.With("role", "node", "node", n.nid)
	return n
}

// ID returns the node address.
func (n *Node) ID() pre.NodeID { return n.nid }

// Card returns the node's public keys; grantors seal fragments to its
// encrypting key.
func (n *Node) Card() *identity.Card { return n.id.Card() }

// Reencrypt re-encrypts every capsule of req with the node's fragment.
func (n *Node) Reencrypt(ctx context.Context, req *pre.ReencryptionRequest) (*pre.ReencryptionResponse, error) {
	const op = "node.Reencrypt"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.KeyFrag == nil || len(req.Capsules) == 0 {
		return nil, pre.Errorf(op, "%w: empty request", pre.ErrInvalidRequest)
	}
	if req.Node != n.nid {
		return nil, pre.Errorf(op, "%w: request addressed to %s", pre.ErrNodeRejected, req.Node)
	}

	grant, err := req.KeyFrag.Open(n.id.EncryptingKey())
	if err != nil {
		return nil, pre.Errorf(op, "%w: %v", pre.ErrNodeRejected, err)
	}
	kfrag := grant.KeyFrag
	defer kfrag.Zeroize()

	if !grant.HRAC.Equal(req.HRAC) {
		return nil, pre.Errorf(op, "%w: fragment belongs to another policy", pre.ErrNodeRejected)
	}
	if !n.now().Before(grant.Expiration) {
		return nil, pre.Wrap(op, pre.ErrExpired)
	}
	if !kfrag.BoundTo([]byte(n.nid)) {
		return nil, pre.Errorf(op, "%w: fragment is bound to another node", pre.ErrNodeRejected)
	}
	if err := kfrag.Verify(req.GrantorKey, req.DelegatingKey, req.ReceivingKey); err != nil {
		return nil, pre.Errorf(op, "%w: %v", pre.ErrNodeRejected, err)
	}

	resp := &pre.ReencryptionResponse{Node: n.nid, Fragments: make([]*umbral.CapsuleFrag, 0, len(req.Capsules))}
	for i, c := range req.Capsules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cf, err := umbral.Reencrypt(c, kfrag)
		if err != nil {
			return nil, pre.Errorf(op, "%w: capsule %d: %v", pre.ErrInvalidRequest, i, err)
		}
		resp.Fragments = append(resp.Fragments, cf)
	}
	n.log.Debug(ctx, "reencrypted", "hrac", req.HRAC.String(), "capsules", len(req.Capsules), logging.Redacted("kfrag"))
	return resp, nil
}

// String identifies the node in logs.
func (n *Node) String() string {
	return fmt.Sprintf("node(%s)", n.nid)
}
