package bank

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/system"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

func TestSystem_CreateAccount(t *testing.T) {
	ctx := context.Background()
	b := newTestBank(t, &Overrides{})

	funder := newKeypair(t)
	account := newKeypair(t)
	owner := newKey(t)
	require.NoError(t, b.Airdrop(ctx, publicKey(funder), 1_000_000))

	create := system.CreateAccount(publicKey(funder), publicKey(account), owner, 5000, 16)
	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{funder, account}, create))

	state, err := b.GetAccount(ctx, publicKey(account))
	require.NoError(t, err)
	assert.EqualValues(t, owner, state.Owner)
	assert.EqualValues(t, 5000, state.Lamports)
	assert.Equal(t, make([]byte, 16), state.Data)
	assertLamports(t, b, publicKey(funder), 1_000_000-5000)

	err = b.Execute(ctx, []ed25519.PrivateKey{funder, account}, create)
	assertCustomError(t, err, system.ErrorAccountAlreadyInUse)

	other := newKeypair(t)
	err = b.Execute(ctx, []ed25519.PrivateKey{funder, other}, system.CreateAccount(publicKey(funder), publicKey(other), owner, 0, system.MaxPermittedDataLength+1))
	assertCustomError(t, err, system.ErrorInvalidAccountDataLength)
}

func TestSystem_CreateAccountWithSeed(t *testing.T) {
	ctx := context.Background()
	b := newTestBank(t, &Overrides{})

	base := newKeypair(t)
	owner := newKey(t)
	require.NoError(t, b.Airdrop(ctx, publicKey(base), 1_000_000))

	address, err := solana.CreateWithSeed(publicKey(base), "seeded", owner)
	require.NoError(t, err)

	err = b.Execute(ctx, []ed25519.PrivateKey{base}, system.CreateAccountWithSeed(publicKey(base), address, publicKey(base), "other", 1000, 8, owner))
	assertCustomError(t, err, system.ErrorAddressWithSeedMismatch)

	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{base}, system.CreateAccountWithSeed(publicKey(base), address, publicKey(base), "seeded", 1000, 8, owner)))

	state, err := b.GetAccount(ctx, address)
	require.NoError(t, err)
	assert.EqualValues(t, owner, state.Owner)
	assert.EqualValues(t, 1000, state.Lamports)
	assert.Len(t, state.Data, 8)

	// A separate funder still needs the base signature
	funder := newKeypair(t)
	require.NoError(t, b.Airdrop(ctx, publicKey(funder), 1_000_000))
	second, err := solana.CreateWithSeed(publicKey(base), "second", owner)
	require.NoError(t, err)

	err = b.Execute(ctx, []ed25519.PrivateKey{funder}, system.CreateAccountWithSeed(publicKey(funder), second, publicKey(base), "second", 1000, 0, owner))
	assertInstructionError(t, err, 0, solana.InstructionErrorMissingRequiredSignature)

	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{funder, base}, system.CreateAccountWithSeed(publicKey(funder), second, publicKey(base), "second", 1000, 0, owner)))
	assertLamports(t, b, second, 1000)
}

func TestToken_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := newTestBank(t, &Overrides{})
	rent := b.Rent(ctx)

	authority := newKeypair(t)
	holder := newKeypair(t)
	require.NoError(t, b.Airdrop(ctx, publicKey(authority), 1_000_000_000))

	mint := newKeypair(t)
	require.NoError(t, b.Execute(
		ctx,
		[]ed25519.PrivateKey{authority, mint},
		system.CreateAccount(publicKey(authority), publicKey(mint), token.ProgramKey, rent.MinimumBalance(token.MintSize), token.MintSize),
		token.InitializeMint(publicKey(mint), publicKey(authority), nil, 2),
	))

	source := createTokenAccount(t, b, authority, publicKey(mint), publicKey(authority))
	dest := createTokenAccount(t, b, authority, publicKey(mint), publicKey(holder))

	err := b.Execute(ctx, []ed25519.PrivateKey{authority}, token.InitializeAccount(source, publicKey(mint), publicKey(authority)))
	assertCustomError(t, err, token.ErrorAlreadyInUse)

	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{authority}, token.MintTo(publicKey(mint), source, publicKey(authority), 100)))

	mintState, err := b.GetAccount(ctx, publicKey(mint))
	require.NoError(t, err)
	var decodedMint token.Mint
	require.NoError(t, decodedMint.Unmarshal(mintState.Data))
	assert.EqualValues(t, 100, decodedMint.Supply)
	assert.EqualValues(t, 2, decodedMint.Decimals)

	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{authority}, token.Transfer(source, dest, publicKey(authority), 40)))
	assert.EqualValues(t, 60, tokenBalance(t, b, source))
	assert.EqualValues(t, 40, tokenBalance(t, b, dest))

	err = b.Execute(ctx, []ed25519.PrivateKey{authority}, token.Transfer(source, dest, publicKey(authority), 61))
	assertCustomError(t, err, token.ErrorInsufficientFunds)

	err = b.Execute(ctx, []ed25519.PrivateKey{holder}, token.Transfer(source, dest, publicKey(holder), 1))
	assertCustomError(t, err, token.ErrorOwnerMismatch)

	// Hand the source account to the holder
	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{authority}, token.SetAuthority(source, publicKey(authority), publicKey(holder), token.AuthorityTypeAccountHolder)))

	err = b.Execute(ctx, []ed25519.PrivateKey{authority}, token.Transfer(source, dest, publicKey(authority), 1))
	assertCustomError(t, err, token.ErrorOwnerMismatch)

	require.NoError(t, b.Execute(ctx, []ed25519.PrivateKey{holder}, token.Transfer(source, dest, publicKey(holder), 60)))
	assert.EqualValues(t, 0, tokenBalance(t, b, source))
	assert.EqualValues(t, 100, tokenBalance(t, b, dest))
}

func TestToken_RequiresTokenOwnedAccounts(t *testing.T) {
	ctx := context.Background()
	b := newTestBank(t, &Overrides{})

	authority := newKeypair(t)
	require.NoError(t, b.Airdrop(ctx, publicKey(authority), 1_000_000_000))

	err := b.Execute(ctx, []ed25519.PrivateKey{authority}, token.Transfer(publicKey(authority), newKey(t), publicKey(authority), 1))
	assertInstructionError(t, err, 0, solana.InstructionErrorIncorrectProgramID)

	err = b.Execute(ctx, nil, solana.NewInstruction(token.ProgramKey, []byte{0xff}))
	assertCustomError(t, err, token.ErrorInvalidInstruction)
}

func createTokenAccount(t *testing.T, b *Bank, funder ed25519.PrivateKey, mint, owner ed25519.PublicKey) ed25519.PublicKey {
	ctx := context.Background()
	account := newKeypair(t)

	require.NoError(t, b.Execute(
		ctx,
		[]ed25519.PrivateKey{funder, account},
		system.CreateAccount(publicKey(funder), publicKey(account), token.ProgramKey, b.Rent(ctx).MinimumBalance(token.AccountSize), token.AccountSize),
		token.InitializeAccount(publicKey(account), mint, owner),
	))
	return publicKey(account)
}

func tokenBalance(t *testing.T, b *Bank, key ed25519.PublicKey) uint64 {
	state, err := b.GetAccount(context.Background(), key)
	require.NoError(t, err)

	var account token.Account
	require.NoError(t, account.Unmarshal(state.Data))
	return account.Amount
}
