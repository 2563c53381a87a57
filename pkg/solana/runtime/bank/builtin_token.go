package bank

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

func processToken(_ *transaction, ctx *runtime.Context, data []byte) error {
	ix := solana.NewInstruction(ctx.ProgramID, data, runtime.Metas(ctx.Accounts...)...)

	command, err := token.GetCommand(ix)
	if err != nil {
		return token.ErrorInvalidInstruction
	}

	switch command {
	case token.CommandInitializeMint:
		decompiled, err := token.DecompileInitializeMint(ix)
		if err != nil {
			return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
		}

		ctx.Log.Debug("Instruction: InitializeMint")
		return initializeMint(ctx, decompiled)
	case token.CommandInitializeAccount:
		decompiled, err := token.DecompileInitializeAccount(ix)
		if err != nil {
			return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
		}

		ctx.Log.Debug("Instruction: InitializeAccount")
		return initializeTokenAccount(ctx, decompiled)
	case token.CommandTransfer:
		decompiled, err := token.DecompileTransfer(ix)
		if err != nil {
			return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
		}

		ctx.Log.Debug("Instruction: Transfer")
		return transferTokens(ctx, decompiled)
	case token.CommandSetAuthority:
		decompiled, err := token.DecompileSetAuthority(ix)
		if err != nil {
			return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
		}

		ctx.Log.Debug("Instruction: SetAuthority")
		return setAuthority(ctx, decompiled)
	case token.CommandMintTo:
		decompiled, err := token.DecompileMintTo(ix)
		if err != nil {
			return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
		}

		ctx.Log.Debug("Instruction: MintTo")
		return mintTo(ctx, decompiled)
	default:
		return errors.Wrapf(token.ErrorInvalidInstruction, "unsupported token command: %d", command)
	}
}

func initializeMint(ctx *runtime.Context, decompiled *token.DecompiledInitializeMint) error {
	mintAccount, err := accountByKey(ctx, decompiled.Mint)
	if err != nil {
		return err
	}
	if !mintAccount.IsOwnedBy(ctx.ProgramID) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var mint token.Mint
	if err := mint.Unmarshal(mintAccount.Data()); err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent.IsExempt(mintAccount.Lamports(), mintAccount.DataLen()) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   decompiled.MintAuthority,
		Decimals:        decompiled.Decimals,
		IsInitialized:   true,
		FreezeAuthority: decompiled.FreezeAuthority,
	}
	return mintAccount.SetData(mint.Marshal())
}

func initializeTokenAccount(ctx *runtime.Context, decompiled *token.DecompiledInitializeAccount) error {
	account, err := accountByKey(ctx, decompiled.Account)
	if err != nil {
		return err
	}
	mintAccount, err := accountByKey(ctx, decompiled.Mint)
	if err != nil {
		return err
	}

	if !account.IsOwnedBy(ctx.ProgramID) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if err := state.Unmarshal(account.Data()); err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if state.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent.IsExempt(account.Lamports(), account.DataLen()) {
		return token.ErrorNotRentExempt
	}

	if _, err := loadMint(mintAccount); err != nil {
		return err
	}

	state = token.Account{
		Mint:  decompiled.Mint,
		Owner: decompiled.Owner,
		State: token.AccountStateInitialized,
	}
	return account.SetData(state.Marshal())
}

func transferTokens(ctx *runtime.Context, decompiled *token.DecompiledTransfer) error {
	sourceAccount, err := accountByKey(ctx, decompiled.Source)
	if err != nil {
		return err
	}
	destAccount, err := accountByKey(ctx, decompiled.Destination)
	if err != nil {
		return err
	}
	authorityAccount, err := accountByKey(ctx, decompiled.Owner)
	if err != nil {
		return err
	}

	source, err := loadTokenAccount(ctx, sourceAccount)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(ctx, destAccount)
	if err != nil {
		return err
	}

	if source.State == token.AccountStateFrozen || dest.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if source.Amount < decompiled.Amount {
		return token.ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Mint, dest.Mint) {
		return token.ErrorMintMismatch
	}
	if err := validateOwner(source.Owner, authorityAccount); err != nil {
		return err
	}

	if bytes.Equal(decompiled.Source, decompiled.Destination) {
		return nil
	}

	amount, carry := bits.Add64(dest.Amount, decompiled.Amount, 0)
	if carry != 0 {
		return token.ErrorOverflow
	}

	source.Amount -= decompiled.Amount
	dest.Amount = amount

	if err := sourceAccount.SetData(source.Marshal()); err != nil {
		return err
	}
	return destAccount.SetData(dest.Marshal())
}

func setAuthority(ctx *runtime.Context, decompiled *token.DecompiledSetAuthority) error {
	account, err := accountByKey(ctx, decompiled.Account)
	if err != nil {
		return err
	}
	authorityAccount, err := accountByKey(ctx, decompiled.CurrentAuthority)
	if err != nil {
		return err
	}

	if account.DataLen() == token.MintSize {
		mint, err := loadMint(account)
		if err != nil {
			return err
		}

		switch decompiled.Type {
		case token.AuthorityTypeMintTokens:
			if len(mint.MintAuthority) == 0 {
				return token.ErrorFixedSupply
			}
			if err := validateOwner(mint.MintAuthority, authorityAccount); err != nil {
				return err
			}
			mint.MintAuthority = decompiled.NewAuthority
		case token.AuthorityTypeFreezeAccount:
			if len(mint.FreezeAuthority) == 0 {
				return token.ErrorMintCannotFreeze
			}
			if err := validateOwner(mint.FreezeAuthority, authorityAccount); err != nil {
				return err
			}
			mint.FreezeAuthority = decompiled.NewAuthority
		default:
			return token.ErrorAuthorityTypeNotSupported
		}

		return account.SetData(mint.Marshal())
	}

	state, err := loadTokenAccount(ctx, account)
	if err != nil {
		return err
	}
	if state.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}

	switch decompiled.Type {
	case token.AuthorityTypeAccountHolder:
		if len(decompiled.NewAuthority) == 0 {
			return token.ErrorInvalidInstruction
		}
		if err := validateOwner(state.Owner, authorityAccount); err != nil {
			return err
		}

		state.Owner = decompiled.NewAuthority
		state.Delegate = nil
		state.DelegatedAmount = 0
	case token.AuthorityTypeCloseAccount:
		authority := state.CloseAuthority
		if len(authority) == 0 {
			authority = state.Owner
		}
		if err := validateOwner(authority, authorityAccount); err != nil {
			return err
		}

		state.CloseAuthority = decompiled.NewAuthority
	default:
		return token.ErrorAuthorityTypeNotSupported
	}

	return account.SetData(state.Marshal())
}

func mintTo(ctx *runtime.Context, decompiled *token.DecompiledMintTo) error {
	mintAccount, err := accountByKey(ctx, decompiled.Mint)
	if err != nil {
		return err
	}
	destAccount, err := accountByKey(ctx, decompiled.Destination)
	if err != nil {
		return err
	}
	authorityAccount, err := accountByKey(ctx, decompiled.Authority)
	if err != nil {
		return err
	}

	mint, err := loadMint(mintAccount)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(ctx, destAccount)
	if err != nil {
		return err
	}

	if dest.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(dest.Mint, decompiled.Mint) {
		return token.ErrorMintMismatch
	}
	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if err := validateOwner(mint.MintAuthority, authorityAccount); err != nil {
		return err
	}

	supply, carry := bits.Add64(mint.Supply, decompiled.Amount, 0)
	if carry != 0 {
		return token.ErrorOverflow
	}
	amount, carry := bits.Add64(dest.Amount, decompiled.Amount, 0)
	if carry != 0 {
		return token.ErrorOverflow
	}

	mint.Supply = supply
	dest.Amount = amount

	if err := mintAccount.SetData(mint.Marshal()); err != nil {
		return err
	}
	return destAccount.SetData(dest.Marshal())
}

func loadTokenAccount(ctx *runtime.Context, account *runtime.Account) (*token.Account, error) {
	if !account.IsOwnedBy(ctx.ProgramID) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if err := state.Unmarshal(account.Data()); err != nil {
		return nil, errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if state.State == token.AccountStateUninitialized {
		return nil, token.ErrorUninitializedState
	}
	return &state, nil
}

func loadMint(account *runtime.Account) (*token.Mint, error) {
	if !account.IsOwnedBy(token.ProgramKey) {
		return nil, token.ErrorInvalidMint
	}

	var mint token.Mint
	if err := mint.Unmarshal(account.Data()); err != nil {
		return nil, token.ErrorInvalidMint
	}
	if !mint.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &mint, nil
}

func validateOwner(expected ed25519.PublicKey, authority *runtime.Account) error {
	if !bytes.Equal(expected, authority.Key()) {
		return token.ErrorOwnerMismatch
	}
	if !authority.IsSigner() {
		return solana.InstructionErrorMissingRequiredSignature
	}
	return nil
}
