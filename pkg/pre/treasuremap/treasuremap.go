// Package treasuremap encodes the routing map a grantor hands to a grantee:
// which nodes hold which key fragment of a policy, sealed so that only the
// grantee can read it and only the grantor could have written it.
package treasuremap

import (
	"errors"
	"fmt"
	"time"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Assignment routes one key fragment to one node.
type Assignment struct {
	Node pre.NodeID
	// Commitment is the kfrag commitment the node's capsule fragments must
	// prove against.
	Commitment *curve.Point
	KeyFrag    *pre.SealedKeyFrag
}

// Map is the decrypted routing map. It is immutable once built.
type Map struct {
	HRAC        hrac.HRAC
	Threshold   int
	Expiration  time.Time
	PolicyKey   *umbral.PublicKey
	GrantorKey  *umbral.PublicKey
	Label       []byte
	Assignments []Assignment
}

// Shares returns the number of assignments, the policy's n.
func (m *Map) Shares() int {
	return len(m.Assignments)
}

// Expired reports whether the map has expired at now. The expiration
// instant itself counts as expired.
func (m *Map) Expired(now time.Time) bool {
	return !now.Before(m.Expiration)
}

// Assignment returns the assignment for node.
func (m *Map) Assignment(node pre.NodeID) (Assignment, bool) {
	for _, a := range m.Assignments {
		if a.Node == node {
			return a, true
		}
	}
	return Assignment{}, false
}

func (m *Map) validate() error {
	n := len(m.Assignments)
	if m.Threshold < 1 || m.Threshold > n || n > umbral.MaxShares {
		return fmt.Errorf("%w: %d of %d", pre.ErrInvalidThreshold, m.Threshold, n)
	}
	if m.PolicyKey == nil || m.GrantorKey == nil {
		return errors.New("treasuremap: missing keys")
	}
	seen := make(map[pre.NodeID]struct{}, n)
	for _, a := range m.Assignments {
		if a.Node == "" || a.Commitment == nil || a.KeyFrag == nil {
			return errors.New("treasuremap: incomplete assignment")
		}
		if _, dup := seen[a.Node]; dup {
			return fmt.Errorf("treasuremap: node %s assigned twice", a.Node)
		}
		seen[a.Node] = struct{}{}
	}
	return nil
}

// Bytes returns the wire encoding of the plaintext map.
func (m *Map) Bytes() []byte {
	w := wire.NewBuilder(1024).
		Bytes(1, m.HRAC[:]).
		Uint(2, uint64(m.Threshold)).
		Int(3, m.Expiration.UnixNano()).
		Bytes(4, m.PolicyKey.Bytes()).
		Bytes(5, m.GrantorKey.Bytes()).
		Bytes(6, m.Label)
	for _, a := range m.Assignments {
		w.Bytes(7, wire.NewBuilder(512).
			Bytes(1, []byte(a.Node)).
			Bytes(2, a.Commitment.Bytes()).
			Bytes(3, a.KeyFrag.Bytes()).
			Finish())
	}
	return w.Finish()
}

var (
	mapSchema = wire.Schema{
		1: wire.BytesField,
		2: wire.VarintField,
		3: wire.VarintField,
		4: wire.BytesField,
		5: wire.BytesField,
		6: wire.BytesField,
		7: wire.RepeatedBytes,
	}
	assignmentSchema = wire.Schema{
		1: wire.BytesField,
		2: wire.BytesField,
		3: wire.BytesField,
	}
)

// FromBytes decodes and validates a plaintext map.
func FromBytes(b []byte) (*Map, error) {
	var m Map
	err := wire.DecodeSchema(b, mapSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			m.HRAC, err = hrac.FromBytes(f.Value)
		case 2:
			m.Threshold = int(f.Uint)
		case 3:
			m.Expiration = time.Unix(0, f.Int()).UTC()
		case 4:
			m.PolicyKey, err = umbral.PublicKeyFromBytes(f.Value)
		case 5:
			m.GrantorKey, err = umbral.PublicKeyFromBytes(f.Value)
		case 6:
			m.Label = wire.Clone(f.Value)
		case 7:
			var a Assignment
			if a, err = assignmentFromBytes(f.Value); err == nil {
				m.Assignments = append(m.Assignments, a)
			}
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("treasuremap: decode: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func assignmentFromBytes(b []byte) (Assignment, error) {
	var a Assignment
	err := wire.DecodeSchema(b, assignmentSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			a.Node = pre.NodeID(f.Value)
		case 2:
			a.Commitment, err = curve.NewPointFromBytes(f.Value)
		case 3:
			a.KeyFrag, err = pre.SealedKeyFragFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown assignment field %d", f.Num)
		}
		return err
	})
	return a, err
}
