package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/messagekit"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// State is the progress of one retrieval.
type State uint8

const (
	StatePending State = iota
	StateCollecting
	StateReconstructed
	StateInsufficient
	StateVerificationFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCollecting:
		return "collecting"
	case StateReconstructed:
		return "reconstructed"
	case StateInsufficient:
		return "insufficient"
	case StateVerificationFailed:
		return "verification_failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// RetrieveParams are the inputs of Retrieve.
type RetrieveParams struct {
	// Map is a joined routing map.
	Map *treasuremap.Map

	// MessageKits are decrypted as one batch; every node receives all of
	// their capsules in a single request.
	MessageKits []*messagekit.MessageKit

	// Originator verifies the kit signatures. Nil trusts the sender key
	// embedded in each kit.
	Originator *umbral.PublicKey
}

// RetrieveResult is the outcome of Retrieve.
type RetrieveResult struct {
	AttemptID uuid.UUID
	State     State

	// Plaintexts are in MessageKits order. Nil unless State is
	// StateReconstructed.
	Plaintexts [][]byte

	// Contributors are the nodes whose fragments were used.
	Contributors []pre.NodeID
}

// ShortfallError reports a capsule for which fewer than the threshold of
// valid fragments could be collected. It unwraps to
// pre.ErrInsufficientFragments, or to pre.ErrCapsuleMismatch when
// fragments computed over another capsule are what kept the count short.
type ShortfallError struct {
	Capsule   int
	Valid     int
	Threshold int
	Mismatch  bool

	// Causes aggregates the per-node failures; see multierr.Errors.
	Causes error
}

func (e *ShortfallError) Error() string {
	msg := fmt.Sprintf("%v: capsule %d has %d of %d valid fragments", e.Unwrap(), e.Capsule, e.Valid, e.Threshold)
	if e.Causes != nil {
		msg += ": " + e.Causes.Error()
	}
	return msg
}

func (e *ShortfallError) Unwrap() error {
	if e.Mismatch {
		return pre.ErrCapsuleMismatch
	}
	return pre.ErrInsufficientFragments
}

var errMalformedResponse = errors.New("malformed re-encryption response")

// accumulator collects verified fragments from concurrent workers.
type accumulator struct {
	mu          sync.Mutex
	threshold   int
	frags       [][]*umbral.VerifiedCapsuleFrag
	mismatches  []int
	outstanding int
	used        map[pre.NodeID]struct{}
	errs        error
}

func newAccumulator(threshold, capsules, nodes int) *accumulator {
	return &accumulator{
		threshold:   threshold,
		frags:       make([][]*umbral.VerifiedCapsuleFrag, capsules),
		mismatches:  make([]int, capsules),
		outstanding: nodes,
		used:        make(map[pre.NodeID]struct{}, threshold),
	}
}

// add records one node's outcome. frags holds one entry per capsule; nil
// entries failed verification.
func (a *accumulator) add(node pre.NodeID, frags []*umbral.VerifiedCapsuleFrag, mismatched []bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outstanding--
	if err != nil {
		a.errs = multierr.Append(a.errs, fmt.Errorf("%s: %w", node, err))
	}
	for i, f := range frags {
		if f == nil {
			if mismatched[i] {
				a.mismatches[i]++
			}
			continue
		}
		if len(a.frags[i]) < a.threshold {
			a.frags[i] = append(a.frags[i], f)
			a.used[node] = struct{}{}
		}
	}
}

func (a *accumulator) complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range a.frags {
		if len(f) < a.threshold {
			return false
		}
	}
	return true
}

// shortfall returns the first capsule that can no longer reach the
// threshold, or nil. With final set, outstanding requests are treated as
// lost.
func (a *accumulator) shortfall(final bool) *ShortfallError {
	a.mu.Lock()
	defer a.mu.Unlock()
	outstanding := a.outstanding
	if final {
		outstanding = 0
	}
	for i, f := range a.frags {
		if len(f)+outstanding >= a.threshold {
			continue
		}
		return &ShortfallError{
			Capsule:   i,
			Valid:     len(f),
			Threshold: a.threshold,
			Mismatch:  a.mismatches[i] > 0 && len(f)+a.mismatches[i] >= a.threshold,
			Causes:    multierr.Combine(multierr.Errors(a.errs)...),
		}
	}
	return nil
}

func (a *accumulator) snapshot() ([][]*umbral.VerifiedCapsuleFrag, []pre.NodeID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	frags := make([][]*umbral.VerifiedCapsuleFrag, len(a.frags))
	for i, f := range a.frags {
		frags[i] = append([]*umbral.VerifiedCapsuleFrag(nil), f...)
	}
	nodes := make([]pre.NodeID, 0, len(a.used))
	for n := range a.used {
		nodes = append(nodes, n)
	}
	return frags, nodes
}

// Retrieve decrypts a batch of message kits under a joined map. It asks
// every node of the map concurrently, verifies each fragment against the
// capsule, the grantor's kfrag signature and the node's commitment, and
// stops as soon as every capsule holds the threshold of valid fragments.
//
// The result is returned on failure too, carrying the final State.
func (g *Grantee) Retrieve(ctx context.Context, p *RetrieveParams) (*RetrieveResult, error) {
	const op = "Retrieve"
	res := &RetrieveResult{AttemptID: uuid.New(), State: StatePending}
	log := g.log.With("attempt", res.AttemptID.String())

	if p == nil || p.Map == nil || len(p.MessageKits) == 0 {
		return res, pre.Errorf(op, "%w: map and message kits are required", pre.ErrInvalidRequest)
	}
	m := p.Map
	if m.Expired(g.now()) {
		res.State = StateInsufficient
		return res, pre.Errorf(op, "%w: policy %s", pre.ErrExpired, m.HRAC)
	}
	for i, kit := range p.MessageKits {
		if kit == nil || kit.Capsule == nil {
			return res, pre.Errorf(op, "%w: message kit %d is empty", pre.ErrInvalidRequest, i)
		}
		if err := kit.VerifySignature(p.Originator); err != nil {
			res.State = StateVerificationFailed
			log.Warn(ctx, "message kit signature rejected", "hrac", m.HRAC.String(), "kit", i)
			return res, pre.Errorf(op, "message kit %d: %w", i, err)
		}
	}

	res.State = StateCollecting
	log.Debug(ctx, "collecting fragments", "hrac", m.HRAC.String(), "m", m.Threshold, "n", m.Shares(), "capsules", len(p.MessageKits))
	frags, contributors, err := g.collect(ctx, m, p.MessageKits)
	if err != nil {
		var short *ShortfallError
		if errors.As(err, &short) {
			res.State = StateInsufficient
			log.Warn(ctx, "retrieval failed", "hrac", m.HRAC.String(), "valid", short.Valid, "m", short.Threshold, "error", err)
		}
		return res, pre.Wrap(op, err)
	}

	plaintexts := make([][]byte, len(p.MessageKits))
	for i, kit := range p.MessageKits {
		pt, err := umbral.DecryptReencrypted(g.id.EncryptingKey(), m.PolicyKey, kit.Capsule, frags[i], kit.Ciphertext)
		if err != nil {
			res.State = StateVerificationFailed
			return res, pre.Errorf(op, "message kit %d: %w", i, err)
		}
		plaintexts[i] = pt
	}
	res.State = StateReconstructed
	res.Plaintexts = plaintexts
	res.Contributors = contributors
	log.Info(ctx, "retrieval complete", "hrac", m.HRAC.String(), "capsules", len(plaintexts), "nodes", len(contributors))
	return res, nil
}

// collect fans requests out to every assignment of m and returns the
// threshold of verified fragments per kit.
func (g *Grantee) collect(ctx context.Context, m *treasuremap.Map, kits []*messagekit.MessageKit) ([][]*umbral.VerifiedCapsuleFrag, []pre.NodeID, error) {
	if g.cfg.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RetrievalTimeout)
		defer cancel()
	}
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	capsules := make([]*umbral.Capsule, len(kits))
	for i, kit := range kits {
		capsules[i] = kit.Capsule
	}
	receiving := g.id.Card().EncryptingKey
	acc := newAccumulator(m.Threshold, len(capsules), len(m.Assignments))
	done := make(chan struct{}, len(m.Assignments))

	eg := new(errgroup.Group)
	eg.SetLimit(g.cfg.MaxConcurrency)
	go func() {
		for _, a := range m.Assignments {
			eg.Go(func() error {
				defer func() { done <- struct{}{} }()
				if err := fanCtx.Err(); err != nil {
					acc.add(a.Node, nil, nil, err)
					return nil
				}
				nodeCtx, cancelNode := context.WithTimeout(fanCtx, g.cfg.NodeTimeout)
				defer cancelNode()
				req := &pre.ReencryptionRequest{
					HRAC:          m.HRAC,
					Node:          a.Node,
					Capsules:      capsules,
					KeyFrag:       a.KeyFrag,
					GrantorKey:    m.GrantorKey,
					DelegatingKey: m.PolicyKey,
					ReceivingKey:  receiving,
				}
				resp, err := g.provider.Reencrypt(nodeCtx, req)
				if err != nil {
					acc.add(a.Node, nil, nil, err)
					return nil
				}
				frags, mismatched, err := verifyResponse(m, a, capsules, receiving, resp)
				acc.add(a.Node, frags, mismatched, err)
				return nil
			})
		}
		_ = eg.Wait()
	}()

	for received := 0; received < len(m.Assignments); received++ {
		select {
		case <-done:
		case <-ctx.Done():
			if short := acc.shortfall(true); short != nil {
				short.Causes = multierr.Append(short.Causes, ctx.Err())
				return nil, nil, short
			}
		}
		if acc.complete() {
			break
		}
		if short := acc.shortfall(false); short != nil {
			return nil, nil, short
		}
	}
	if short := acc.shortfall(true); short != nil {
		return nil, nil, short
	}
	cancel()
	frags, nodes := acc.snapshot()
	return frags, nodes, nil
}

// verifyResponse checks every fragment of resp. Fragments that fail are
// left nil; mismatched marks the ones computed over another capsule.
func verifyResponse(m *treasuremap.Map, a treasuremap.Assignment, capsules []*umbral.Capsule, receiving *umbral.PublicKey, resp *pre.ReencryptionResponse) ([]*umbral.VerifiedCapsuleFrag, []bool, error) {
	if resp == nil || resp.Node != a.Node || len(resp.Fragments) != len(capsules) {
		return nil, nil, errMalformedResponse
	}
	frags := make([]*umbral.VerifiedCapsuleFrag, len(capsules))
	mismatched := make([]bool, len(capsules))
	var errs error
	for i, cf := range resp.Fragments {
		if cf == nil {
			errs = multierr.Append(errs, fmt.Errorf("capsule %d: %w", i, errMalformedResponse))
			continue
		}
		if string(cf.NodeID()) != string(a.Node) || !cf.Commitment().Equal(a.Commitment) {
			errs = multierr.Append(errs, fmt.Errorf("capsule %d: %w: not issued for this node", i, umbral.ErrInvalidCapsuleFrag))
			continue
		}
		v, err := cf.Verify(capsules[i], m.GrantorKey, m.PolicyKey, receiving)
		if err != nil {
			mismatched[i] = errors.Is(err, umbral.ErrCapsuleMismatch)
			errs = multierr.Append(errs, fmt.Errorf("capsule %d: %w", i, err))
			continue
		}
		frags[i] = v
	}
	return frags, mismatched, errs
}
