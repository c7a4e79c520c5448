// Package pretest builds a complete in-memory deployment (grantor, grantee
// identity, nodes on a mocknet) for tests across pkg/pre.
package pretest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/mocknet"
	"github.com/manishvishnoi2/nucypher/pkg/pre/node"
	"github.com/manishvishnoi2/nucypher/pkg/pre/policy"
	"github.com/manishvishnoi2/nucypher/pkg/pre/store"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
)

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a clock reading t.
func NewClock(t time.Time) *Clock { return &Clock{t: t} }

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Env is a grantor (Alice), a grantee identity (Bob) and n nodes.
type Env struct {
	Alice, Bob *identity.Identity
	Nodes      []*node.Node
	Store      store.Store
	Maps       *treasuremap.Store
	Grantor    *policy.Grantor
	Net        *mocknet.Net
	Clock      *Clock
}

// New builds an environment with n nodes registered on a fresh mocknet.
func New(t testing.TB, n int) *Env {
	t.Helper()
	e := &Env{
		Store: store.NewMemory(),
		Net:   mocknet.New(),
		Clock: NewClock(time.Now().UTC()),
	}
	var err error
	e.Alice, err = identity.Generate()
	require.NoError(t, err)
	e.Bob, err = identity.Generate()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		id, err := identity.Generate()
		require.NoError(t, err)
		nd := node.New(id, node.WithClock(e.Clock.Now))
		e.Nodes = append(e.Nodes, nd)
		e.Net.Register(nd.ID(), nd)
	}
	e.Maps = treasuremap.NewStore(e.Store)
	e.Grantor = policy.NewGrantor(e.Alice,
		policy.WithStore(e.Store),
		policy.WithMapStore(e.Maps),
		policy.WithClock(e.Clock.Now),
	)
	return e
}

// Cards returns the public cards of every node.
func (e *Env) Cards() []*identity.Card {
	out := make([]*identity.Card, len(e.Nodes))
	for i, n := range e.Nodes {
		out[i] = n.Card()
	}
	return out
}

// Grant creates an m-of-len(Nodes) policy for Bob and label and grants it
// to every node for ttl.
func (e *Env) Grant(t testing.TB, label string, m int, ttl time.Duration) *policy.GrantResult {
	t.Helper()
	ctx := context.Background()
	pol, err := e.Grantor.CreatePolicy(ctx, &policy.CreateParams{
		Grantee: e.Bob.Card().EncryptingKey,
		Label:   []byte(label),
		M:       m,
		N:       len(e.Nodes),
	})
	require.NoError(t, err)
	res, err := e.Grantor.Grant(ctx, &policy.GrantParams{
		Policy:     pol,
		Nodes:      e.Cards(),
		Expiration: e.Clock.Now().Add(ttl),
	})
	require.NoError(t, err)
	return res
}
