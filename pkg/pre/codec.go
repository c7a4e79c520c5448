package pre

import (
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/internal/wire"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Field numbers of ReencryptionRequest.
const (
	reqHRAC = iota + 1
	reqNode
	reqCapsule
	reqKeyFrag
	reqGrantorKey
	reqDelegatingKey
	reqReceivingKey
)

var (
	requestSchema = wire.Schema{
		reqHRAC:          wire.BytesField,
		reqNode:          wire.BytesField,
		reqCapsule:       wire.RepeatedBytes,
		reqKeyFrag:       wire.BytesField,
		reqGrantorKey:    wire.BytesField,
		reqDelegatingKey: wire.BytesField,
		reqReceivingKey:  wire.BytesField,
	}
	responseSchema = wire.Schema{
		1: wire.BytesField,
		2: wire.RepeatedBytes,
	}
)

// Bytes returns the wire encoding of the request.
func (r *ReencryptionRequest) Bytes() []byte {
	w := wire.NewBuilder(512).
		Bytes(reqHRAC, r.HRAC[:]).
		Bytes(reqNode, []byte(r.Node))
	for _, c := range r.Capsules {
		w.Bytes(reqCapsule, c.Bytes())
	}
	return w.
		Bytes(reqKeyFrag, r.KeyFrag.Bytes()).
		Bytes(reqGrantorKey, r.GrantorKey.Bytes()).
		Bytes(reqDelegatingKey, r.DelegatingKey.Bytes()).
		Bytes(reqReceivingKey, r.ReceivingKey.Bytes()).
		Finish()
}

// ReencryptionRequestFromBytes decodes a request. Capsules are verified as
// part of decoding.
func ReencryptionRequestFromBytes(b []byte) (*ReencryptionRequest, error) {
	var r ReencryptionRequest
	err := wire.DecodeSchema(b, requestSchema, func(f wire.Field) error {
		var err error
		switch f.Num {
		case reqHRAC:
			r.HRAC, err = hrac.FromBytes(f.Value)
		case reqNode:
			r.Node = NodeID(f.Value)
		case reqCapsule:
			var c *umbral.Capsule
			if c, err = umbral.CapsuleFromBytes(f.Value); err == nil {
				r.Capsules = append(r.Capsules, c)
			}
		case reqKeyFrag:
			r.KeyFrag, err = SealedKeyFragFromBytes(f.Value)
		case reqGrantorKey:
			r.GrantorKey, err = umbral.PublicKeyFromBytes(f.Value)
		case reqDelegatingKey:
			r.DelegatingKey, err = umbral.PublicKeyFromBytes(f.Value)
		case reqReceivingKey:
			r.ReceivingKey, err = umbral.PublicKeyFromBytes(f.Value)
		default:
			err = fmt.Errorf("unknown field %d", f.Num)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reencryption request: %v", ErrInvalidRequest, err)
	}
	if r.Node == "" || len(r.Capsules) == 0 || r.KeyFrag == nil || r.GrantorKey == nil || r.DelegatingKey == nil || r.ReceivingKey == nil {
		return nil, fmt.Errorf("%w: reencryption request: missing fields", ErrInvalidRequest)
	}
	return &r, nil
}

// Bytes returns the wire encoding of the response.
func (r *ReencryptionResponse) Bytes() []byte {
	w := wire.NewBuilder(1024).Bytes(1, []byte(r.Node))
	for _, f := range r.Fragments {
		w.Bytes(2, f.Bytes())
	}
	return w.Finish()
}

// ReencryptionResponseFromBytes decodes a response. Fragments still need to
// be verified by the caller.
func ReencryptionResponseFromBytes(b []byte) (*ReencryptionResponse, error) {
	var r ReencryptionResponse
	err := wire.DecodeSchema(b, responseSchema, func(f wire.Field) error {
		switch f.Num {
		case 1:
			r.Node = NodeID(f.Value)
		case 2:
			cf, err := umbral.CapsuleFragFromBytes(f.Value)
			if err != nil {
				return err
			}
			r.Fragments = append(r.Fragments, cf)
		default:
			return fmt.Errorf("unknown field %d", f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reencryption response: %w", err)
	}
	if r.Node == "" {
		return nil, errors.New("reencryption response: missing node")
	}
	return &r, nil
}
