package pre

import (
	"errors"
	"fmt"

	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

var (
	// ErrInvalidThreshold indicates m and n do not satisfy 1 <= m <= n <= 255.
	ErrInvalidThreshold = errors.New("pre: invalid threshold")

	// ErrInsufficientNodes indicates a grant was given fewer (or more) nodes
	// than the policy's n.
	ErrInsufficientNodes = errors.New("pre: node count does not match policy")

	// ErrPolicyExpired indicates a grant with an expiration not in the future.
	ErrPolicyExpired = errors.New("pre: policy expiration is in the past")

	// ErrUnknownGranteeKey indicates a missing or malformed grantee key.
	ErrUnknownGranteeKey = errors.New("pre: unknown grantee key")

	// ErrEncryptionFailure indicates encryption under malformed key material.
	ErrEncryptionFailure = errors.New("pre: encryption failure")

	// ErrPlaintextTooLarge indicates a plaintext above the configured bound.
	ErrPlaintextTooLarge = errors.New("pre: plaintext too large")

	// ErrUnknownPolicy indicates no routing map or policy is stored for an
	// HRAC.
	ErrUnknownPolicy = errors.New("pre: unknown policy")

	// ErrBadSignature indicates a routing map not signed by the claimed
	// grantor.
	ErrBadSignature = errors.New("pre: bad signature")

	// ErrExpired indicates a policy or routing map past its expiration.
	ErrExpired = errors.New("pre: policy expired")

	// ErrInsufficientFragments indicates fewer than m valid capsule fragments
	// could be collected.
	ErrInsufficientFragments = errors.New("pre: insufficient capsule fragments")

	// ErrSignatureMismatch indicates a message kit whose originator signature
	// does not verify.
	ErrSignatureMismatch = errors.New("pre: message kit signature mismatch")

	// ErrCapsuleMismatch indicates capsule fragments computed over a
	// different capsule.
	ErrCapsuleMismatch = umbral.ErrCapsuleMismatch

	// ErrInvalidRequest indicates a malformed request at an API boundary.
	ErrInvalidRequest = errors.New("pre: invalid request")

	// ErrNodeUnavailable indicates a re-encryption node that could not be
	// reached.
	ErrNodeUnavailable = errors.New("pre: node unavailable")

	// ErrNodeRejected indicates a node refused a re-encryption request.
	ErrNodeRejected = errors.New("pre: node rejected request")
)

// Kind classifies errors into the categories callers act on.
type Kind uint8

const (
	// KindInternal covers everything that is not one of the classes below.
	KindInternal Kind = iota
	// KindValidation is a malformed or out-of-range input.
	KindValidation
	// KindPolicyState is an unknown or expired policy.
	KindPolicyState
	// KindVerification is a signature or proof that did not verify.
	KindVerification
	// KindAvailability is a shortage of nodes or fragments. These are the
	// only retryable errors.
	KindAvailability
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicyState:
		return "policy_state"
	case KindVerification:
		return "verification"
	case KindAvailability:
		return "availability"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidThreshold, KindValidation},
	{ErrUnknownGranteeKey, KindValidation},
	{ErrPolicyExpired, KindValidation},
	{ErrPlaintextTooLarge, KindValidation},
	{ErrInvalidRequest, KindValidation},
	{ErrEncryptionFailure, KindValidation},
	{ErrUnknownPolicy, KindPolicyState},
	{ErrExpired, KindPolicyState},
	{ErrBadSignature, KindVerification},
	{ErrSignatureMismatch, KindVerification},
	{ErrCapsuleMismatch, KindVerification},
	{ErrInsufficientFragments, KindAvailability},
	{ErrInsufficientNodes, KindAvailability},
	{ErrNodeUnavailable, KindAvailability},
}

// KindOf returns the class of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether retrying the same operation later may succeed.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindAvailability
}

// Error wraps an underlying error with the operation that failed.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pre.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error for op. Use %w in format to keep sentinels
// matchable with errors.Is.
func Errorf(op string, format string, args ...interface{}) error {
	return &Error{
		Op:  op,
		Err: fmt.Errorf(format, args...),
	}
}

// Wrap attaches op to err. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
