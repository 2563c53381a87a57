package solana

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionError_Keys(t *testing.T) {
	ie := NewInstructionError(1, InstructionErrorInsufficientFunds)
	assert.Equal(t, InstructionErrorInsufficientFunds, ie.ErrorKey())
	assert.Nil(t, ie.CustomError())
	assert.True(t, errors.Is(ie, InstructionErrorInsufficientFunds))
	assert.Equal(t, "Error processing Instruction 1: InsufficientFunds", ie.Error())

	wrapped := NewInstructionError(0, errors.Wrap(InstructionErrorReadonlyDataModified, "record"))
	assert.Equal(t, InstructionErrorReadonlyDataModified, wrapped.ErrorKey())

	generic := NewInstructionError(0, errors.New("boom"))
	assert.Equal(t, InstructionErrorGenericError, generic.ErrorKey())

	empty := InstructionError{}
	assert.Equal(t, InstructionErrorKey(""), empty.ErrorKey())
}

func TestInstructionError_Custom(t *testing.T) {
	ie := NewInstructionError(2, errors.Wrap(CustomError(4), "withdraw"))
	assert.Equal(t, InstructionErrorCustom, ie.ErrorKey())

	ce := ie.CustomError()
	require.NotNil(t, ce)
	assert.Equal(t, CustomError(4), *ce)
	assert.Equal(t, "custom program error: 4", ce.Error())
	assert.True(t, errors.Is(ie, CustomError(4)))
	assert.False(t, errors.Is(ie, CustomError(5)))
}
