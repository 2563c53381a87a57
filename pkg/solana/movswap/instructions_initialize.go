package movswap

import (
	"crypto/ed25519"

	"github.com/code-payments/mov-swap/pkg/solana"
)

type InitializeInstructionAccounts struct {
	Initiator          ed25519.PublicKey
	SwapStore          ed25519.PublicKey
	FundedTokenAccount ed25519.PublicKey
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: InitializeOperation{}.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Initiator,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.SwapStore,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.FundedTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
