package movswap

type InstructionType uint8

const (
	InstructionTypeInitialize InstructionType = iota
	InstructionTypeSwap
	InstructionTypeWithdraw
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "Initialize"
	case InstructionTypeSwap:
		return "Swap"
	case InstructionTypeWithdraw:
		return "Withdraw"
	}
	return "Unknown"
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}
