package pre

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{ErrInvalidThreshold, KindValidation},
		{fmt.Errorf("create: %w", ErrUnknownGranteeKey), KindValidation},
		{Errorf("Grant", "bad expiration: %w", ErrPolicyExpired), KindValidation},
		{ErrPlaintextTooLarge, KindValidation},
		{ErrUnknownPolicy, KindPolicyState},
		{Wrap("JoinPolicy", ErrExpired), KindPolicyState},
		{ErrBadSignature, KindVerification},
		{ErrSignatureMismatch, KindVerification},
		{ErrCapsuleMismatch, KindVerification},
		{ErrInsufficientFragments, KindAvailability},
		{ErrInsufficientNodes, KindAvailability},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrInsufficientFragments))
	assert.False(t, Retryable(ErrExpired))
	assert.False(t, Retryable(nil))

	// Node failures aggregated under the sentinel keep it matchable.
	agg := multierr.Combine(errors.New("node a: timeout"), errors.New("node b: refused"))
	err := fmt.Errorf("%w: %v", ErrInsufficientFragments, agg)
	assert.True(t, Retryable(err))
}

func TestErrorWrapping(t *testing.T) {
	err := Errorf("Retrieve", "collect: %w", ErrInsufficientFragments)
	assert.ErrorIs(t, err, ErrInsufficientFragments)
	assert.Equal(t, "pre.Retrieve: collect: pre: insufficient capsule fragments", err.Error())

	var pe *Error
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "Retrieve", pe.Op)
	assert.NoError(t, Wrap("noop", nil))
	assert.Equal(t, "availability", KindAvailability.String())
}
