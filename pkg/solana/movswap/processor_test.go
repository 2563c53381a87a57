package movswap

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/system"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

type invocation struct {
	ix    solana.Instruction
	seeds []runtime.SignerSeeds
}

type fakeInvoker struct {
	calls []invocation
	err   error
}

func (f *fakeInvoker) Invoke(ix solana.Instruction, seeds ...runtime.SignerSeeds) error {
	f.calls = append(f.calls, invocation{ix: ix, seeds: seeds})
	return f.err
}

type processorEnv struct {
	rent    system.Rent
	invoker *fakeInvoker

	admin     *runtime.State
	record    *runtime.State
	funded    *runtime.State
	receiver  *runtime.State
	escrow    *runtime.State
	tokenProg *runtime.State
	authority *runtime.State
}

func setupProcessorEnv(t *testing.T) *processorEnv {
	rent := system.DefaultRent()

	authority, _, err := GetAuthorityAddress(PROGRAM_ID)
	require.NoError(t, err)

	return &processorEnv{
		rent:    rent,
		invoker: &fakeInvoker{},
		admin: &runtime.State{
			Key:      newTestKey(t),
			Owner:    system.SystemAccount,
			Lamports: 1_000_000_000,
		},
		record: &runtime.State{
			Key:      newTestKey(t),
			Owner:    PROGRAM_ID,
			Lamports: rent.MinimumBalance(DefaultSwapStoreAllocation),
			Data:     make([]byte, DefaultSwapStoreAllocation),
		},
		funded: &runtime.State{
			Key:   newTestKey(t),
			Owner: token.ProgramKey,
			Data:  make([]byte, token.AccountSize),
		},
		receiver: &runtime.State{
			Key:   newTestKey(t),
			Owner: token.ProgramKey,
			Data:  make([]byte, token.AccountSize),
		},
		escrow: &runtime.State{
			Key:      newTestKey(t),
			Owner:    PROGRAM_ID,
			Lamports: 5,
		},
		tokenProg: &runtime.State{
			Key:        token.ProgramKey,
			Owner:      runtime.NativeLoader,
			Executable: true,
		},
		authority: &runtime.State{
			Key:   authority,
			Owner: system.SystemAccount,
		},
	}
}

func (e *processorEnv) context(accounts ...*runtime.Account) *runtime.Context {
	return &runtime.Context{
		ProgramID: PROGRAM_ID,
		Accounts:  accounts,
		Rent:      e.rent,
		Invoker:   e.invoker,
		Log:       logrus.StandardLogger().WithField("test", "movswap"),
	}
}

func (e *processorEnv) initialize(t *testing.T, initiatorSigned bool) error {
	ctx := e.context(
		runtime.NewAccount(e.admin, initiatorSigned, false),
		runtime.NewAccount(e.record, false, true),
		runtime.NewAccount(e.funded, false, true),
		runtime.NewAccount(e.tokenProg, false, false),
	)
	return NewProcessor().Process(ctx, InitializeOperation{}.Marshal())
}

func (e *processorEnv) swap(t *testing.T) error {
	ctx := e.context(
		runtime.NewAccount(&runtime.State{Key: newTestKey(t), Owner: system.SystemAccount}, true, false),
		runtime.NewAccount(e.funded, false, true),
		runtime.NewAccount(e.receiver, false, true),
		runtime.NewAccount(e.escrow, false, true),
		runtime.NewAccount(e.record, false, true),
		runtime.NewAccount(e.tokenProg, false, false),
		runtime.NewAccount(e.authority, false, false),
	)
	return NewProcessor().Process(ctx, SwapOperation{}.Marshal())
}

func (e *processorEnv) withdraw(t *testing.T, signer *runtime.State, amount uint64) error {
	ctx := e.context(
		runtime.NewAccount(signer, true, true),
		runtime.NewAccount(e.record, false, true),
	)
	return NewProcessor().Process(ctx, WithdrawOperation{Amount: amount}.Marshal())
}

func (e *processorEnv) setStore(t *testing.T, store *SwapStoreAccount) {
	encoded, err := store.Marshal()
	require.NoError(t, err)
	copy(e.record.Data, encoded)
}

func (e *processorEnv) initializedStore() *SwapStoreAccount {
	return &SwapStoreAccount{
		IsInitialized:      true,
		Admin:              e.admin.Key,
		FundedTokenAccount: e.funded.Key,
	}
}

func (e *processorEnv) loadStore(t *testing.T) *SwapStoreAccount {
	var store SwapStoreAccount
	require.NoError(t, store.Unmarshal(e.record.Data))
	return &store
}

func assertCode(t *testing.T, err error, expected error) {
	require.Error(t, err)
	assert.True(t, errors.Is(err, expected), "unexpected error: %v", err)
}

func TestProcessor_Initialize(t *testing.T) {
	env := setupProcessorEnv(t)

	require.NoError(t, env.initialize(t, true))

	store := env.loadStore(t)
	assert.True(t, store.IsInitialized)
	assert.Equal(t, env.admin.Key, store.Admin)
	assert.EqualValues(t, 0, store.AmountSwapped)
	assert.Equal(t, env.funded.Key, store.FundedTokenAccount)

	for _, b := range env.record.Data[SwapStoreAccountSize:] {
		assert.EqualValues(t, 0, b)
	}

	require.Len(t, env.invoker.calls, 1)
	call := env.invoker.calls[0]
	assert.Empty(t, call.seeds)

	decompiled, err := token.DecompileSetAuthority(call.ix)
	require.NoError(t, err)
	assert.Equal(t, env.funded.Key, decompiled.Account)
	assert.Equal(t, env.admin.Key, decompiled.CurrentAuthority)
	assert.Equal(t, env.authority.Key, decompiled.NewAuthority)
	assert.Equal(t, token.AuthorityTypeAccountHolder, decompiled.Type)
}

func TestProcessor_Initialize_Rejections(t *testing.T) {
	t.Run("unsigned", func(t *testing.T) {
		env := setupProcessorEnv(t)
		assertCode(t, env.initialize(t, false), ErrAuthorization)
		assert.Empty(t, env.invoker.calls)
	})

	t.Run("foreign record", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.record.Owner = system.SystemAccount
		assertCode(t, env.initialize(t, true), ErrOwnership)
	})

	t.Run("foreign funded account", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.funded.Owner = PROGRAM_ID
		assertCode(t, env.initialize(t, true), ErrOwnership)
	})

	t.Run("wrong token program", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.tokenProg.Key = newTestKey(t)
		assertCode(t, env.initialize(t, true), ErrOwnership)
	})

	t.Run("below rent floor", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.record.Lamports--
		assertCode(t, env.initialize(t, true), ErrFunding)
		assert.Empty(t, env.invoker.calls)
	})

	t.Run("short storage", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.record.Data = make([]byte, SwapStoreAccountSize-1)
		env.record.Lamports = env.rent.MinimumBalance(len(env.record.Data))
		assertCode(t, env.initialize(t, true), ErrState)
	})

	t.Run("already initialized", func(t *testing.T) {
		env := setupProcessorEnv(t)
		require.NoError(t, env.initialize(t, true))

		before := append([]byte(nil), env.record.Data...)
		assertCode(t, env.initialize(t, true), ErrState)
		assert.Equal(t, before, env.record.Data)
		assert.Len(t, env.invoker.calls, 1)
	})

	t.Run("token service failure", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.invoker.err = token.ErrorOwnerMismatch

		err := env.initialize(t, true)
		assertCode(t, err, ErrExternalService)
		assert.True(t, errors.Is(err, token.ErrorOwnerMismatch))
		assert.False(t, env.loadStore(t).IsInitialized)
	})
}

func TestProcessor_Swap(t *testing.T) {
	env := setupProcessorEnv(t)
	env.setStore(t, env.initializedStore())
	env.record.Lamports += 5

	floor := env.rent.MinimumBalance(DefaultSwapStoreAllocation)

	require.NoError(t, env.swap(t))

	assert.EqualValues(t, 0, env.escrow.Lamports)
	assert.EqualValues(t, floor+10, env.record.Lamports)
	assert.EqualValues(t, 5, env.loadStore(t).AmountSwapped)

	require.Len(t, env.invoker.calls, 1)
	call := env.invoker.calls[0]

	decompiled, err := token.DecompileTransfer(call.ix)
	require.NoError(t, err)
	assert.Equal(t, env.funded.Key, decompiled.Source)
	assert.Equal(t, env.receiver.Key, decompiled.Destination)
	assert.Equal(t, env.authority.Key, decompiled.Owner)
	assert.EqualValues(t, 50, decompiled.Amount)

	signer, err := NewAuthoritySigner(PROGRAM_ID)
	require.NoError(t, err)
	require.Len(t, call.seeds, 1)
	assert.Equal(t, signer.Seeds(), call.seeds[0])

	// An empty escrow is a no-op swap
	require.NoError(t, env.swap(t))
	assert.EqualValues(t, floor+10, env.record.Lamports)
	assert.EqualValues(t, 5, env.loadStore(t).AmountSwapped)
	require.Len(t, env.invoker.calls, 2)

	decompiled, err = token.DecompileTransfer(env.invoker.calls[1].ix)
	require.NoError(t, err)
	assert.EqualValues(t, 0, decompiled.Amount)
}

func TestProcessor_Swap_Rejections(t *testing.T) {
	for _, tc := range []struct {
		name     string
		mutate   func(t *testing.T, env *processorEnv)
		expected error
	}{
		{
			name: "uninitialized",
			mutate: func(t *testing.T, env *processorEnv) {
				env.setStore(t, &SwapStoreAccount{})
			},
			expected: ErrState,
		},
		{
			name: "foreign escrow",
			mutate: func(t *testing.T, env *processorEnv) {
				env.escrow.Owner = system.SystemAccount
			},
			expected: ErrOwnership,
		},
		{
			name: "foreign record",
			mutate: func(t *testing.T, env *processorEnv) {
				env.record.Owner = system.SystemAccount
			},
			expected: ErrOwnership,
		},
		{
			name: "foreign receiver",
			mutate: func(t *testing.T, env *processorEnv) {
				env.receiver.Owner = system.SystemAccount
			},
			expected: ErrOwnership,
		},
		{
			name: "wrong token program",
			mutate: func(t *testing.T, env *processorEnv) {
				env.tokenProg.Key = newTestKey(t)
			},
			expected: ErrOwnership,
		},
		{
			name: "funded account mismatch",
			mutate: func(t *testing.T, env *processorEnv) {
				store := env.initializedStore()
				store.FundedTokenAccount = newTestKey(t)
				env.setStore(t, store)
			},
			expected: ErrInvalidRecordReference,
		},
		{
			name: "wrong authority",
			mutate: func(t *testing.T, env *processorEnv) {
				env.authority.Key = newTestKey(t)
			},
			expected: ErrInvalidRecordReference,
		},
		{
			name: "escrow is the record",
			mutate: func(t *testing.T, env *processorEnv) {
				env.escrow = env.record
			},
			expected: ErrInvalidRecordReference,
		},
		{
			name: "token amount overflow",
			mutate: func(t *testing.T, env *processorEnv) {
				env.escrow.Lamports = math.MaxUint64/SwapRatio + 1
			},
			expected: ErrArithmeticOverflow,
		},
		{
			name: "amount swapped overflow",
			mutate: func(t *testing.T, env *processorEnv) {
				store := env.initializedStore()
				store.AmountSwapped = math.MaxUint64 - 4
				env.setStore(t, store)
			},
			expected: ErrArithmeticOverflow,
		},
		{
			name: "token service failure",
			mutate: func(t *testing.T, env *processorEnv) {
				env.invoker.err = token.ErrorInsufficientFunds
			},
			expected: ErrExternalService,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupProcessorEnv(t)
			env.setStore(t, env.initializedStore())
			tc.mutate(t, env)

			assertCode(t, env.swap(t), tc.expected)
		})
	}
}

func TestProcessor_Withdraw(t *testing.T) {
	env := setupProcessorEnv(t)
	env.setStore(t, env.initializedStore())

	floor := env.rent.MinimumBalance(DefaultSwapStoreAllocation)
	env.record.Lamports = floor + 10
	adminBalance := env.admin.Lamports

	before := append([]byte(nil), env.record.Data...)

	require.NoError(t, env.withdraw(t, env.admin, 10))
	assert.EqualValues(t, floor, env.record.Lamports)
	assert.EqualValues(t, adminBalance+10, env.admin.Lamports)
	assert.Equal(t, before, env.record.Data)

	assertCode(t, env.withdraw(t, env.admin, 1), ErrInsufficientFunds)
	assert.EqualValues(t, floor, env.record.Lamports)

	require.NoError(t, env.withdraw(t, env.admin, 0))
	assert.Empty(t, env.invoker.calls)
}

func TestProcessor_Withdraw_Rejections(t *testing.T) {
	t.Run("unsigned", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.setStore(t, env.initializedStore())

		ctx := env.context(
			runtime.NewAccount(env.admin, false, true),
			runtime.NewAccount(env.record, false, true),
		)
		assertCode(t, NewProcessor().Process(ctx, WithdrawOperation{}.Marshal()), ErrAuthorization)
	})

	t.Run("not the admin", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.setStore(t, env.initializedStore())
		env.record.Lamports += 1000

		for _, amount := range []uint64{0, 1, 1000} {
			other := &runtime.State{Key: newTestKey(t), Owner: system.SystemAccount}
			assertCode(t, env.withdraw(t, other, amount), ErrAuthorization)
			assert.EqualValues(t, 0, other.Lamports)
		}
	})

	t.Run("foreign record", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.setStore(t, env.initializedStore())
		env.record.Owner = system.SystemAccount
		assertCode(t, env.withdraw(t, env.admin, 0), ErrOwnership)
	})

	t.Run("uninitialized", func(t *testing.T) {
		env := setupProcessorEnv(t)
		assertCode(t, env.withdraw(t, env.admin, 0), ErrState)
	})

	t.Run("below rent floor", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.setStore(t, env.initializedStore())
		env.record.Lamports = env.rent.MinimumBalance(DefaultSwapStoreAllocation) - 1

		assertCode(t, env.withdraw(t, env.admin, 0), ErrInsufficientFunds)
		assertCode(t, env.withdraw(t, env.admin, math.MaxUint64), ErrInsufficientFunds)
	})

	t.Run("admin is the record", func(t *testing.T) {
		env := setupProcessorEnv(t)
		store := env.initializedStore()
		store.Admin = env.record.Key
		env.setStore(t, store)

		assertCode(t, env.withdraw(t, env.record, 0), ErrInvalidRecordReference)
	})

	t.Run("admin balance overflow", func(t *testing.T) {
		env := setupProcessorEnv(t)
		env.setStore(t, env.initializedStore())
		env.record.Lamports += 10
		env.admin.Lamports = math.MaxUint64

		assertCode(t, env.withdraw(t, env.admin, 10), ErrArithmeticOverflow)
		assert.EqualValues(t, uint64(math.MaxUint64), env.admin.Lamports)
	})
}

func TestProcessor_Decode(t *testing.T) {
	env := setupProcessorEnv(t)
	env.setStore(t, env.initializedStore())
	before := env.record.Clone()

	ctx := env.context(
		runtime.NewAccount(env.admin, true, true),
		runtime.NewAccount(env.record, false, true),
	)

	for _, data := range [][]byte{nil, {3}, {0xff}, {2, 1}} {
		err := NewProcessor().Process(ctx, data)
		assertCode(t, err, ErrDecode)
	}

	assert.True(t, before.Equal(env.record))
	assert.Empty(t, env.invoker.calls)
}

func TestProcessor_NotEnoughAccounts(t *testing.T) {
	env := setupProcessorEnv(t)

	ctx := env.context(runtime.NewAccount(env.admin, true, false))
	for _, op := range []Operation{InitializeOperation{}, SwapOperation{}, WithdrawOperation{}} {
		err := NewProcessor().Process(ctx, op.Marshal())
		assert.Equal(t, runtime.ErrNotEnoughAccountKeys, err)
	}
}
