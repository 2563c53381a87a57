package movswap

import (
	"github.com/pkg/errors"
)

const (
	WithdrawInstructionArgsSize = 8 // amount
)

// Operation is one of InitializeOperation, SwapOperation or WithdrawOperation.
type Operation interface {
	Type() InstructionType
	Marshal() []byte

	isOperation()
}

type InitializeOperation struct{}

type SwapOperation struct{}

type WithdrawOperation struct {
	Amount uint64
}

func (InitializeOperation) Type() InstructionType { return InstructionTypeInitialize }
func (SwapOperation) Type() InstructionType       { return InstructionTypeSwap }
func (WithdrawOperation) Type() InstructionType   { return InstructionTypeWithdraw }

func (InitializeOperation) isOperation() {}
func (SwapOperation) isOperation()       {}
func (WithdrawOperation) isOperation()   {}

func (o InitializeOperation) Marshal() []byte {
	return []byte{byte(o.Type())}
}

func (o SwapOperation) Marshal() []byte {
	return []byte{byte(o.Type())}
}

func (o WithdrawOperation) Marshal() []byte {
	var offset int

	data := make([]byte, 1+WithdrawInstructionArgsSize)
	putInstructionType(data, o.Type(), &offset)
	putUint64(data, o.Amount, &offset)
	return data
}

// DecodeOperation parses instruction data. Bytes beyond an operation's
// arguments are ignored.
func DecodeOperation(data []byte) (Operation, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch InstructionType(data[0]) {
	case InstructionTypeInitialize:
		return InitializeOperation{}, nil
	case InstructionTypeSwap:
		return SwapOperation{}, nil
	case InstructionTypeWithdraw:
		if len(data) < 1+WithdrawInstructionArgsSize {
			return nil, errors.Wrapf(ErrTruncatedAmount, "have %d bytes", len(data)-1)
		}

		offset := 1
		var op WithdrawOperation
		getUint64(data, &op.Amount, &offset)
		return op, nil
	default:
		return nil, errors.Wrapf(ErrUnknownTag, "tag %d", data[0])
	}
}
