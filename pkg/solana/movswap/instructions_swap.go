package movswap

import (
	"crypto/ed25519"

	"github.com/code-payments/mov-swap/pkg/solana"
)

type SwapInstructionAccounts struct {
	Initiator            ed25519.PublicKey
	FundedTokenAccount   ed25519.PublicKey
	ReceiverTokenAccount ed25519.PublicKey
	SwapLamports         ed25519.PublicKey
	SwapStore            ed25519.PublicKey
	Authority            ed25519.PublicKey
}

func NewSwapInstruction(
	accounts *SwapInstructionAccounts,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: SwapOperation{}.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Initiator,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.FundedTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.ReceiverTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.SwapLamports,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.SwapStore,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
