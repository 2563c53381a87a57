package bank

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/system"
)

func processSystem(tx *transaction, ctx *runtime.Context, data []byte) error {
	ix := solana.NewInstruction(ctx.ProgramID, data, runtime.Metas(ctx.Accounts...)...)

	command, err := system.GetCommand(ix)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
	}

	switch command {
	case system.CommandCreateAccount:
		decompiled, err := system.DecompileCreateAccount(ix)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
		}

		ctx.Log.Debug("Instruction: CreateAccount")
		return createAccount(tx, ctx, decompiled.Funder, decompiled.Address, decompiled.Address, decompiled.Lamports, decompiled.Size, decompiled.Owner)
	case system.CommandCreateAccountWithSeed:
		decompiled, err := system.DecompileCreateAccountWithSeed(ix)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
		}

		ctx.Log.Debug("Instruction: CreateAccountWithSeed")

		expected, err := solana.CreateWithSeed(decompiled.Base, decompiled.Seed, decompiled.Owner)
		if err == solana.ErrMaxSeedLengthExceeded {
			return system.ErrorMaxSeedLengthExceeded
		} else if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidArgument, err.Error())
		}
		if !bytes.Equal(expected, decompiled.Address) {
			return system.ErrorAddressWithSeedMismatch
		}

		return createAccount(tx, ctx, decompiled.Funder, decompiled.Address, decompiled.Base, decompiled.Lamports, decompiled.Size, decompiled.Owner)
	case system.CommandTransfer:
		decompiled, err := system.DecompileTransfer(ix)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
		}

		ctx.Log.Debug("Instruction: Transfer")
		return transferLamports(ctx, decompiled.From, decompiled.To, decompiled.Lamports)
	default:
		return errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unsupported system command: %d", command)
	}
}

// createAccount funds, allocates and assigns a new account. authority is the
// key that must sign for the new address.
func createAccount(tx *transaction, ctx *runtime.Context, funder, address, authority ed25519.PublicKey, lamports, size uint64, owner ed25519.PublicKey) error {
	funderAccount, err := accountByKey(ctx, funder)
	if err != nil {
		return err
	}
	newAccount, err := accountByKey(ctx, address)
	if err != nil {
		return err
	}
	authorityAccount, err := accountByKey(ctx, authority)
	if err != nil {
		return err
	}

	if !funderAccount.IsSigner() || !authorityAccount.IsSigner() {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if newAccount.Lamports() > 0 || newAccount.DataLen() > 0 || !newAccount.IsOwnedBy(system.ProgramKey[:]) {
		return system.ErrorAccountAlreadyInUse
	}

	if size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}

	if err := transferLamports(ctx, funder, address, lamports); err != nil {
		return err
	}

	state := tx.states[string(address)]
	state.Data = make([]byte, size)
	state.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(state.Owner, owner)

	return nil
}

func transferLamports(ctx *runtime.Context, from, to ed25519.PublicKey, lamports uint64) error {
	fromAccount, err := accountByKey(ctx, from)
	if err != nil {
		return err
	}
	toAccount, err := accountByKey(ctx, to)
	if err != nil {
		return err
	}

	if !fromAccount.IsSigner() {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if fromAccount.DataLen() > 0 {
		return errors.Wrap(solana.InstructionErrorInvalidArgument, "from must not carry data")
	}
	if fromAccount.Lamports() < lamports {
		return system.ErrorResultWithNegativeLamports
	}

	if err := fromAccount.SetLamports(fromAccount.Lamports() - lamports); err != nil {
		return err
	}

	balance, carry := bits.Add64(toAccount.Lamports(), lamports, 0)
	if carry != 0 {
		return solana.InstructionErrorArithmeticOverflow
	}
	return toAccount.SetLamports(balance)
}

func accountByKey(ctx *runtime.Context, key ed25519.PublicKey) (*runtime.Account, error) {
	for _, account := range ctx.Accounts {
		if bytes.Equal(account.Key(), key) {
			return account, nil
		}
	}
	return nil, solana.InstructionErrorNotEnoughAccountKeys
}
