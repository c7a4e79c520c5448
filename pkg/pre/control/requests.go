package control

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/messagekit"
	"github.com/manishvishnoi2/nucypher/pkg/pre/policy"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// ValidationError is a request field that failed validation. It unwraps to
// pre.ErrInvalidRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return pre.ErrInvalidRequest }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func parseKey(field, s string) (*umbral.PublicKey, error) {
	if s == "" {
		return nil, invalid(field, "required")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, invalid(field, "not hex")
	}
	pk, err := umbral.PublicKeyFromBytes(b)
	if err != nil {
		return nil, invalid(field, "not a compressed secp256k1 point")
	}
	return pk, nil
}

func parseBase64(field, s string, required bool) ([]byte, error) {
	if s == "" && required {
		return nil, invalid(field, "required")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid(field, "not base64")
	}
	return b, nil
}

// CreatePolicyRequest is the body of PUT /create_policy.
type CreatePolicyRequest struct {
	BobEncryptingKey string `json:"bob_encrypting_key"`
	Label            string `json:"label"`
	M                int    `json:"m"`
	N                int    `json:"n"`
}

func (r *CreatePolicyRequest) params() (*policy.CreateParams, error) {
	grantee, err := parseKey("bob_encrypting_key", r.BobEncryptingKey)
	if err != nil {
		return nil, err
	}
	label, err := parseBase64("label", r.Label, true)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateThreshold(r.M, r.N); err != nil {
		return nil, invalid("m", "need 1 <= m <= n <= %d, got m=%d n=%d", umbral.MaxShares, r.M, r.N)
	}
	return &policy.CreateParams{Grantee: grantee, Label: label, M: r.M, N: r.N}, nil
}

// GrantRequest is the body of PUT /grant.
type GrantRequest struct {
	CreatePolicyRequest
	ExpirationTime string `json:"expiration_time"`
}

func (r *GrantRequest) params() (*policy.CreateParams, time.Time, error) {
	create, err := r.CreatePolicyRequest.params()
	if err != nil {
		return nil, time.Time{}, err
	}
	if r.ExpirationTime == "" {
		return nil, time.Time{}, invalid("expiration_time", "required")
	}
	exp, err := time.Parse(time.RFC3339, r.ExpirationTime)
	if err != nil {
		return nil, time.Time{}, invalid("expiration_time", "not ISO-8601")
	}
	return create, exp, nil
}

// JoinPolicyRequest is the body of POST /join_policy.
type JoinPolicyRequest struct {
	Label              string `json:"label"`
	AliceSigningPubkey string `json:"alice_signing_pubkey"`
}

func (r *JoinPolicyRequest) params() (*umbral.PublicKey, []byte, error) {
	grantor, err := parseKey("alice_signing_pubkey", r.AliceSigningPubkey)
	if err != nil {
		return nil, nil, err
	}
	label, err := parseBase64("label", r.Label, true)
	if err != nil {
		return nil, nil, err
	}
	return grantor, label, nil
}

// RetrieveRequest is the body of POST /retrieve. MessageKits batches
// several kits under the same policy; MessageKit is the single-kit form.
type RetrieveRequest struct {
	Label                   string   `json:"label"`
	PolicyEncryptingPubkey  string   `json:"policy_encrypting_pubkey"`
	AliceSigningPubkey      string   `json:"alice_signing_pubkey"`
	MessageKit              string   `json:"message_kit,omitempty"`
	MessageKits             []string `json:"message_kits,omitempty"`
	DatasourceSigningPubkey string   `json:"datasource_signing_pubkey"`
}

type retrieveParams struct {
	label      []byte
	policyKey  *umbral.PublicKey
	grantor    *umbral.PublicKey
	kits       []*messagekit.MessageKit
	originator *umbral.PublicKey
}

func (r *RetrieveRequest) params() (*retrieveParams, error) {
	var (
		p   retrieveParams
		err error
	)
	if p.label, err = parseBase64("label", r.Label, true); err != nil {
		return nil, err
	}
	if p.policyKey, err = parseKey("policy_encrypting_pubkey", r.PolicyEncryptingPubkey); err != nil {
		return nil, err
	}
	if p.grantor, err = parseKey("alice_signing_pubkey", r.AliceSigningPubkey); err != nil {
		return nil, err
	}
	if p.originator, err = parseKey("datasource_signing_pubkey", r.DatasourceSigningPubkey); err != nil {
		return nil, err
	}
	encoded := r.MessageKits
	if r.MessageKit != "" {
		encoded = append([]string{r.MessageKit}, encoded...)
	}
	if len(encoded) == 0 {
		return nil, invalid("message_kit", "required")
	}
	for i, s := range encoded {
		b, err := parseBase64("message_kit", s, true)
		if err != nil {
			return nil, err
		}
		kit, err := messagekit.FromBytes(b)
		if err != nil {
			return nil, invalid("message_kit", "kit %d is malformed", i)
		}
		p.kits = append(p.kits, kit)
	}
	return &p, nil
}

// EncryptMessageRequest is the body of POST /encrypt_message. An empty
// message is a valid plaintext; a missing one is not.
type EncryptMessageRequest struct {
	Message *string `json:"message"`
}

func (r *EncryptMessageRequest) params() ([]byte, error) {
	if r.Message == nil {
		return nil, invalid("message", "required")
	}
	return parseBase64("message", *r.Message, false)
}
