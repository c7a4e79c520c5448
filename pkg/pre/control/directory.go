package control

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
)

// NodeDirectory lists the re-encryption nodes a grantor may hand fragments
// to.
type NodeDirectory interface {
	Nodes() []*identity.Card
}

// StaticDirectory is a fixed node list.
type StaticDirectory []*identity.Card

// Nodes returns the list.
func (d StaticDirectory) Nodes() []*identity.Card { return d }

// sampleNodes picks n distinct nodes from dir at random.
func sampleNodes(dir NodeDirectory, n int) ([]*identity.Card, error) {
	if dir == nil {
		return nil, fmt.Errorf("%w: no node directory", pre.ErrInsufficientNodes)
	}
	cards := lo.Filter(dir.Nodes(), func(c *identity.Card, _ int) bool {
		return c != nil && c.SigningKey != nil && c.EncryptingKey != nil
	})
	cards = lo.UniqBy(cards, func(c *identity.Card) pre.NodeID { return c.NodeID() })
	if len(cards) < n {
		return nil, fmt.Errorf("%w: %d nodes known, %d requested", pre.ErrInsufficientNodes, len(cards), n)
	}
	return lo.Samples(cards, n), nil
}
