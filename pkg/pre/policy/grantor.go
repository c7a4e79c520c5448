package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/store"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Grantor creates and grants policies on behalf of one identity.
type Grantor struct {
	id       *identity.Identity
	policies store.Store
	maps     *treasuremap.Store
	log      logging.Logger
	now      func() time.Time
}

// Option configures a Grantor.
type Option func(*Grantor)

// WithStore records policies in s instead of a private in-memory store.
func WithStore(s store.Store) Option {
	return func(g *Grantor) { g.policies = store.WithPrefix(s, "policy/") }
}

// WithMapStore publishes every granted map to s.
func WithMapStore(s *treasuremap.Store) Option {
	return func(g *Grantor) { g.maps = s }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Grantor) { g.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Grantor) { g.now = now }
}

// NewGrantor returns a grantor acting for id.
func NewGrantor(id *identity.Identity, opts ...Option) *Grantor {
	g := &Grantor{
		id:       id,
		policies: store.WithPrefix(store.NewMemory(), "policy/"),
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.log = g.log.With("role", "grantor", "grantor", id.NodeID())
	return g
}

// Card returns the grantor's public keys.
func (g *Grantor) Card() *identity.Card {
	return g.id.Card()
}

// PolicyKey returns the policy encrypting key for label. Originators may
// encrypt under it before any grant exists.
func (g *Grantor) PolicyKey(label []byte) (*umbral.PublicKey, error) {
	return g.id.PolicyPublicKey(label)
}

// CreateParams are the inputs of CreatePolicy.
type CreateParams struct {
	Grantee *umbral.PublicKey
	Label   []byte
	M       int
	N       int
}

// CreatePolicy records a policy for the grantee's encrypting key and label.
// Creating the same policy twice returns the stored one when m and n
// match.
func (g *Grantor) CreatePolicy(ctx context.Context, p *CreateParams) (*Policy, error) {
	const op = "CreatePolicy"
	if p == nil || p.Grantee == nil {
		return nil, pre.Wrap(op, pre.ErrUnknownGranteeKey)
	}
	if err := ValidateThreshold(p.M, p.N); err != nil {
		return nil, pre.Wrap(op, err)
	}
	id, err := hrac.Derive(g.id.Card().SigningKey, p.Grantee, p.Label)
	if err != nil {
		return nil, pre.Errorf(op, "%w: %v", pre.ErrUnknownGranteeKey, err)
	}
	policyKey, err := g.id.PolicyPublicKey(p.Label)
	if err != nil {
		return nil, pre.Wrap(op, err)
	}

	if existing, err := g.Policy(id); err == nil {
		if existing.Threshold != p.M || existing.Shares != p.N {
			return nil, pre.Errorf(op, "%w: policy %s already exists with m=%d n=%d", pre.ErrInvalidThreshold, id, existing.Threshold, existing.Shares)
		}
		return existing, nil
	}

	pol := &Policy{
		HRAC:       id,
		Label:      append([]byte(nil), p.Label...),
		Threshold:  p.M,
		Shares:     p.N,
		GranteeKey: p.Grantee,
		PolicyKey:  policyKey,
		GrantorKey: g.id.Card().SigningKey,
	}
	if err := g.policies.Put(id.Bytes(), pol.Bytes()); err != nil {
		return nil, pre.Wrap(op, err)
	}
	g.log.Info(ctx, "policy created", "hrac", id.String(), "m", p.M, "n", p.N)
	return pol, nil
}

// Policy returns the stored policy for id.
func (g *Grantor) Policy(id hrac.HRAC) (*Policy, error) {
	b, err := g.policies.Get(id.Bytes())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", pre.ErrUnknownPolicy, id)
	}
	if err != nil {
		return nil, err
	}
	return FromBytes(b)
}

// GrantParams are the inputs of Grant.
type GrantParams struct {
	Policy     *Policy
	Nodes      []*identity.Card
	Expiration time.Time
}

// GrantResult is the outcome of a grant.
type GrantResult struct {
	Policy       *Policy
	Map          *treasuremap.Map
	EncryptedMap *treasuremap.EncryptedMap
}

// CheckGrant reports whether a grant of an n-share policy to nodes expiring
// at expiration would pass Grant's checks. It touches no state, so callers
// can run it before CreatePolicy.
func (g *Grantor) CheckGrant(n int, nodes []*identity.Card, expiration time.Time) error {
	_, err := g.checkGrant(n, nodes, expiration)
	return err
}

func (g *Grantor) checkGrant(n int, nodes []*identity.Card, expiration time.Time) ([][]byte, error) {
	if len(nodes) != n {
		return nil, fmt.Errorf("%w: got %d nodes for n=%d", pre.ErrInsufficientNodes, len(nodes), n)
	}
	if !expiration.After(g.now()) {
		return nil, pre.ErrPolicyExpired
	}
	nodeIDs := make([][]byte, len(nodes))
	seen := make(map[pre.NodeID]struct{}, len(nodes))
	for i, c := range nodes {
		if c == nil || c.SigningKey == nil || c.EncryptingKey == nil {
			return nil, fmt.Errorf("%w: node %d has no keys", pre.ErrInsufficientNodes, i)
		}
		nid := c.NodeID()
		if _, dup := seen[nid]; dup {
			return nil, fmt.Errorf("%w: node %s listed twice", pre.ErrInsufficientNodes, nid)
		}
		seen[nid] = struct{}{}
		nodeIDs[i] = []byte(nid)
	}
	return nodeIDs, nil
}

// Grant splits the policy key into one fragment per node, seals each
// fragment to its node, and returns the routing map encrypted for the
// grantee and signed by the grantor. The map is published when a map store
// is configured.
func (g *Grantor) Grant(ctx context.Context, p *GrantParams) (*GrantResult, error) {
	const op = "Grant"
	if p == nil || p.Policy == nil {
		return nil, pre.Errorf(op, "%w: missing policy", pre.ErrInvalidRequest)
	}
	pol := p.Policy
	if err := ValidateThreshold(pol.Threshold, pol.Shares); err != nil {
		return nil, pre.Wrap(op, err)
	}
	nodeIDs, err := g.checkGrant(pol.Shares, p.Nodes, p.Expiration)
	if err != nil {
		return nil, pre.Wrap(op, err)
	}

	policySK, err := g.id.DerivePolicyKey(pol.Label)
	if err != nil {
		return nil, pre.Wrap(op, err)
	}
	defer policySK.Zeroize()
	if !policySK.PublicKey().Equal(pol.PolicyKey) {
		return nil, pre.Errorf(op, "%w: policy key does not belong to this grantor", pre.ErrInvalidRequest)
	}

	signer := g.id.Signer()
	defer signer.Zeroize()
	kfrags, err := umbral.GenerateKeyFrags(&umbral.KeyFragParams{
		Delegating: policySK,
		Receiving:  pol.GranteeKey,
		Signer:     signer,
		Threshold:  pol.Threshold,
		NodeIDs:    nodeIDs,
	})
	if err != nil {
		return nil, pre.Wrap(op, err)
	}
	defer func() {
		for _, kf := range kfrags {
			kf.Zeroize()
		}
	}()

	expiration := p.Expiration.UTC()
	tm := &treasuremap.Map{
		HRAC:        pol.HRAC,
		Threshold:   pol.Threshold,
		Expiration:  expiration,
		PolicyKey:   pol.PolicyKey,
		GrantorKey:  g.id.Card().SigningKey,
		Label:       append([]byte(nil), pol.Label...),
		Assignments: make([]treasuremap.Assignment, 0, len(kfrags)),
	}
	for i, kf := range kfrags {
		sealed, err := pre.SealKeyFrag(p.Nodes[i].EncryptingKey, &pre.KeyFragGrant{
			HRAC:       pol.HRAC,
			Expiration: expiration,
			KeyFrag:    kf,
		})
		if err != nil {
			return nil, pre.Wrap(op, err)
		}
		tm.Assignments = append(tm.Assignments, treasuremap.Assignment{
			Node:       p.Nodes[i].NodeID(),
			Commitment: kf.Commitment(),
			KeyFrag:    sealed,
		})
	}

	enc, err := treasuremap.Encrypt(tm, signer, pol.GranteeKey)
	if err != nil {
		return nil, pre.Wrap(op, err)
	}
	if g.maps != nil {
		if err := g.maps.Publish(enc); err != nil {
			return nil, pre.Wrap(op, err)
		}
	}

	granted := *pol
	granted.Expiration = expiration
	if err := g.policies.Put(pol.HRAC.Bytes(), granted.Bytes()); err != nil {
		return nil, pre.Wrap(op, err)
	}
	g.log.Info(ctx, "policy granted",
		"hrac", pol.HRAC.String(),
		"m", pol.Threshold,
		"n", pol.Shares,
		"expiration", expiration,
		logging.Redacted("kfrags"),
	)
	return &GrantResult{Policy: &granted, Map: tm, EncryptedMap: enc}, nil
}
