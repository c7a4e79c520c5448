// Package retrieval is the grantee side: it joins policies by fetching and
// decrypting their routing maps, and retrieves plaintexts by collecting
// capsule fragments from a threshold of re-encryption nodes.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Grantee joins policies and retrieves plaintexts on behalf of one
// identity. It is safe for concurrent use.
type Grantee struct {
	id       *identity.Identity
	maps     *treasuremap.Store
	provider pre.FragmentProvider
	cfg      pre.Config
	log      logging.Logger
	now      func() time.Time

	mu     sync.RWMutex
	joined map[hrac.HRAC]*treasuremap.Map
}

// Option configures a Grantee.
type Option func(*Grantee)

// WithConfig overrides pre.DefaultConfig. Zero fields keep their defaults.
func WithConfig(c pre.Config) Option {
	return func(g *Grantee) { g.cfg = c.WithDefaults() }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Grantee) { g.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Grantee) { g.now = now }
}

// NewGrantee returns a grantee acting for id. Routing maps are fetched from
// maps and re-encryption requests go to provider.
func NewGrantee(id *identity.Identity, maps *treasuremap.Store, provider pre.FragmentProvider, opts ...Option) (*Grantee, error) {
	if id == nil || maps == nil || provider == nil {
		return nil, errors.New("retrieval: identity, map store and provider are required")
	}
	g := &Grantee{
		id:       id,
		maps:     maps,
		provider: provider,
		cfg:      pre.DefaultConfig(),
		log:      logging.Discard(),
		now:      time.Now,
		joined:   make(map[hrac.HRAC]*treasuremap.Map),
	}
	for _, o := range opts {
		o(g)
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	g.log = g.log.With("role", "grantee", "grantee", id.NodeID())
	return g, nil
}

// Card returns the grantee's public keys. Grantors create policies for
// Card().EncryptingKey.
func (g *Grantee) Card() *identity.Card {
	return g.id.Card()
}

// JoinPolicy fetches the routing map the grantor published for this
// grantee and label, verifies and decrypts it, and remembers it.
func (g *Grantee) JoinPolicy(ctx context.Context, grantorSigning *umbral.PublicKey, label []byte) (*treasuremap.Map, error) {
	const op = "JoinPolicy"
	if err := ctx.Err(); err != nil {
		return nil, pre.Wrap(op, err)
	}
	if grantorSigning == nil {
		return nil, pre.Errorf(op, "%w: missing grantor key", pre.ErrInvalidRequest)
	}
	id, err := hrac.Derive(grantorSigning, g.id.Card().EncryptingKey, label)
	if err != nil {
		return nil, pre.Errorf(op, "%w: %v", pre.ErrInvalidRequest, err)
	}
	enc, err := g.maps.Fetch(id)
	if err != nil {
		return nil, pre.Wrap(op, err)
	}
	m, err := enc.Decrypt(g.id.EncryptingKey(), grantorSigning)
	if err != nil {
		if errors.Is(err, pre.ErrBadSignature) {
			return nil, pre.Wrap(op, err)
		}
		return nil, pre.Errorf(op, "%w: %v", pre.ErrBadSignature, err)
	}
	if m.Expired(g.now()) {
		return nil, pre.Errorf(op, "%w: policy %s expired at %s", pre.ErrExpired, id, m.Expiration.Format(time.RFC3339))
	}

	g.mu.Lock()
	g.joined[id] = m
	g.mu.Unlock()
	g.log.Info(ctx, "policy joined", "hrac", id.String(), "m", m.Threshold, "n", m.Shares())
	return m, nil
}

// Joined returns a previously joined map.
func (g *Grantee) Joined(id hrac.HRAC) (*treasuremap.Map, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.joined[id]
	return m, ok
}

// Leave forgets a joined map.
func (g *Grantee) Leave(id hrac.HRAC) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.joined, id)
}
