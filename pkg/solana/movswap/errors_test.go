package movswap

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

func TestErrorCodes(t *testing.T) {
	for expected, err := range []error{
		ErrAuthorization,
		ErrOwnership,
		ErrState,
		ErrFunding,
		ErrInsufficientFunds,
		ErrInvalidRecordReference,
		ErrDecode,
		ErrExternalService,
		ErrArithmeticOverflow,
	} {
		code, ok := ErrorCode(errors.Wrap(err, "context"))
		require.True(t, ok)
		assert.EqualValues(t, expected, code)
		assert.True(t, errors.Is(err, solana.CustomError(expected)))
	}

	_, ok := ErrorCode(errors.New("unrelated"))
	assert.False(t, ok)
}

func TestExternalServiceError(t *testing.T) {
	cause := token.ErrorInsufficientFunds
	err := newExternalServiceError(cause)

	assert.True(t, errors.Is(err, ErrExternalService))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "external service error")

	code, ok := ErrorCode(err)
	require.True(t, ok)
	assert.EqualValues(t, 7, code)

	ie := solana.NewInstructionError(0, err)
	require.NotNil(t, ie.CustomError())
	assert.EqualValues(t, 7, *ie.CustomError())
}
