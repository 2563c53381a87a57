package movswap

import (
	"crypto/ed25519"

	"github.com/code-payments/mov-swap/pkg/solana"
)

type WithdrawInstructionArgs struct {
	Amount uint64
}

type WithdrawInstructionAccounts struct {
	Admin     ed25519.PublicKey
	SwapStore ed25519.PublicKey
}

func NewWithdrawInstruction(
	accounts *WithdrawInstructionAccounts,
	args *WithdrawInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: WithdrawOperation{Amount: args.Amount}.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Admin,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.SwapStore,
				IsWritable: true,
				IsSigner:   false,
			},
		},
	}
}
