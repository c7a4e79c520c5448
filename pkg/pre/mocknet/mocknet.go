package mocknet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Behavior injects faults into one node.
type Behavior struct {
	// Offline makes every request fail with pre.ErrNodeUnavailable.
	Offline bool
	// Delay is waited before the request reaches the node.
	Delay time.Duration
	// Corrupt damages every returned fragment so that it fails
	// verification.
	Corrupt bool
	// WrongCapsule makes the node re-encrypt fresh capsules instead of the
	// requested ones.
	WrongCapsule bool
}

type peer struct {
	provider pre.FragmentProvider
	behavior Behavior
	calls    atomic.Int64
}

// Net routes re-encryption requests to registered nodes.
type Net struct {
	mu    sync.RWMutex
	peers map[pre.NodeID]*peer
}

func New() *Net { return &Net{peers: make(map[pre.NodeID]*peer)} }

// Register adds or replaces the node serving id.
func (n *Net) Register(id pre.NodeID, p pre.FragmentProvider) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[id] = &peer{provider: p}
}

// SetBehavior sets the fault injection of a registered node.
func (n *Net) SetBehavior(id pre.NodeID, b Behavior) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.peers[id]
	if !ok {
		return fmt.Errorf("mocknet: unknown node %s", id)
	}
	p.behavior = b
	return nil
}

// Calls returns how many requests reached the routing layer for id,
// including failed ones.
func (n *Net) Calls(id pre.NodeID) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if p, ok := n.peers[id]; ok {
		return int(p.calls.Load())
	}
	return 0
}

// Nodes returns the registered node ids in sorted order.
func (n *Net) Nodes() []pre.NodeID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]pre.NodeID, 0, len(n.peers))
	for id := range n.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (n *Net) lookup(id pre.NodeID) (*peer, Behavior, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.peers[id]
	if !ok {
		return nil, Behavior{}, false
	}
	return p, p.behavior, true
}

// Reencrypt implements pre.FragmentProvider.
func (n *Net) Reencrypt(ctx context.Context, req *pre.ReencryptionRequest) (*pre.ReencryptionResponse, error) {
	p, b, ok := n.lookup(req.Node)
	if !ok {
		return nil, fmt.Errorf("%w: unknown node %s", pre.ErrNodeUnavailable, req.Node)
	}
	p.calls.Add(1)

	if b.Offline {
		return nil, fmt.Errorf("%w: %s is offline", pre.ErrNodeUnavailable, req.Node)
	}
	if b.Delay > 0 {
		timer := time.NewTimer(b.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	delivered, err := pre.ReencryptionRequestFromBytes(req.Bytes())
	if err != nil {
		return nil, err
	}
	if b.WrongCapsule {
		if err := swapCapsules(delivered); err != nil {
			return nil, err
		}
	}

	resp, err := p.provider.Reencrypt(ctx, delivered)
	if err != nil {
		return nil, err
	}

	frags := make([][]byte, len(resp.Fragments))
	for i, f := range resp.Fragments {
		frags[i] = f.Bytes()
		if b.Corrupt && len(frags[i]) > 0 {
			// The last byte belongs to the node binding, so the fragment
			// still decodes but no longer matches its kfrag signature.
			frags[i][len(frags[i])-1] ^= 0x01
		}
	}
	out := &pre.ReencryptionResponse{Node: resp.Node, Fragments: make([]*umbral.CapsuleFrag, len(frags))}
	for i, fb := range frags {
		if out.Fragments[i], err = umbral.CapsuleFragFromBytes(fb); err != nil {
			return nil, fmt.Errorf("mocknet: response from %s: %w", req.Node, err)
		}
	}
	return out, nil
}

// swapCapsules replaces the requested capsules with fresh ones under the
// same delegating key.
func swapCapsules(req *pre.ReencryptionRequest) error {
	for i := range req.Capsules {
		c, _, err := umbral.Encrypt(req.DelegatingKey, nil)
		if err != nil {
			return err
		}
		req.Capsules[i] = c
	}
	return nil
}
