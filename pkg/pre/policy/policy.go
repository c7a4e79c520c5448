// Package policy is the grantor side of the protocol: it creates policies
// for a grantee and label, splits the policy key among re-encryption nodes
// and publishes the encrypted routing map.
package policy

import (
	"fmt"
	"time"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Policy is a grant of decryption rights from a grantor to a grantee for
// one label. Expiration is zero until the policy is granted.
type Policy struct {
	HRAC       hrac.HRAC
	Label      []byte
	Threshold  int
	Shares     int
	Expiration time.Time
	GranteeKey *umbral.PublicKey
	PolicyKey  *umbral.PublicKey
	GrantorKey *umbral.PublicKey
}

// ValidateThreshold checks 1 <= m <= n <= umbral.MaxShares.
func ValidateThreshold(m, n int) error {
	if m < 1 || m > n || n > umbral.MaxShares {
		return fmt.Errorf("%w: m=%d n=%d", pre.ErrInvalidThreshold, m, n)
	}
	return nil
}

// Granted reports whether the policy has been granted to nodes.
func (p *Policy) Granted() bool {
	return !p.Expiration.IsZero()
}

// Bytes returns the wire encoding.
func (p *Policy) Bytes() []byte {
	var exp int64
	if p.Granted() {
		exp = p.Expiration.UnixNano()
	}
	return wire.NewBuilder(256).
		Bytes(1, p.HRAC[:]).
		Bytes(2, p.Label).
		Uint(3, uint64(p.Threshold)).
		Uint(4, uint64(p.Shares)).
		Int(5, exp).
		Bytes(6, p.GranteeKey.Bytes()).
		Bytes(7, p.PolicyKey.Bytes()).
		Bytes(8, p.GrantorKey.Bytes()).
		Finish()
}

var policySchema = wire.Schema{
	1: wire.BytesField,
	2: wire.BytesField,
	3: wire.VarintField,
	4: wire.VarintField,
	5: wire.VarintField,
	6: wire.BytesField,
	7: wire.BytesField,
	8: wire.BytesField,
}

// FromBytes decodes a policy.
func FromBytes(b []byte) (*Policy, error) {
	var p Policy
	err := wire.DecodeSchema(b, policySchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			p.HRAC, err = hrac.FromBytes(f.Value)
		case 2:
			p.Label = wire.Clone(f.Value)
		case 3:
			p.Threshold = int(f.Uint)
		case 4:
			p.Shares = int(f.Uint)
		case 5:
			if ns := f.Int(); ns != 0 {
				p.Expiration = time.Unix(0, ns).UTC()
			}
		case 6:
			p.GranteeKey, err = umbral.PublicKeyFromBytes(f.Value)
		case 7:
			p.PolicyKey, err = umbral.PublicKeyFromBytes(f.Value)
		case 8:
			p.GrantorKey, err = umbral.PublicKeyFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}
	if p.GranteeKey == nil || p.PolicyKey == nil || p.GrantorKey == nil {
		return nil, fmt.Errorf("policy: decode: missing keys")
	}
	if err := ValidateThreshold(p.Threshold, p.Shares); err != nil {
		return nil, err
	}
	return &p, nil
}
