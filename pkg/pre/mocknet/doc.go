// Package mocknet provides an in-memory node network for tests, examples and
// the development daemon.
//
// Net implements pre.FragmentProvider by routing each request to the node
// registered under req.Node. Requests and responses are serialized and
// decoded on the way through, so callers and nodes never share memory, the
// same as over a real transport.
//
// # Features
//
//   - Wire-level copy of every request and response
//   - Per-node fault injection: offline, delay, corrupted fragments and
//     fragments computed over the wrong capsule
//   - Per-node call counters
//   - Context-based cancellation support
//   - Thread-safe concurrent operations
//
// # Usage
//
//	net := mocknet.New()
//	for _, n := range nodes {
//	    net.Register(n.ID(), n)
//	}
//	net.SetBehavior(nodes[2].ID(), mocknet.Behavior{Offline: true})
//
//	grantee := retrieval.NewGrantee(bob, maps, net)
//
// # Limitations
//
// Mocknet is designed for testing and local use only:
//   - No encryption or authentication of the transport
//   - No packet loss or reordering
//   - Not suitable for production use
package mocknet
