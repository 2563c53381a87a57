package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/mov-swap/pkg/solana/movswap"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts/memory"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/bank"
)

func TestFlow(t *testing.T) {
	ctx := context.Background()
	b := bank.New(memory.New(), bankConfigProvider(BankConfig{LockTimeout: time.Second}))

	f, err := newFlow(b, defaultConfig.Flow)
	require.NoError(t, err)

	summary, err := f.run(ctx)
	require.NoError(t, err)

	floor := b.Rent(ctx).MinimumBalance(movswap.DefaultSwapStoreAllocation)
	assert.EqualValues(t, 5, summary.AmountSwapped)
	assert.EqualValues(t, 50, summary.ReceivedTokens)
	assert.Equal(t, floor, summary.StoreLamports)

	// The admin pays for the mint, its token account and the store, and gets
	// the withdrawn lamports back.
	assert.Greater(t, summary.AdminLamports, uint64(0))
	assert.Less(t, summary.AdminLamports, defaultConfig.Flow.Airdrop)
}

func TestFlow_WithdrawBelowFloorFails(t *testing.T) {
	conf := defaultConfig.Flow
	conf.WithdrawAmount = conf.StoreSurplus + conf.SwapLamports + 1

	f, err := newFlow(bank.New(memory.New(), bankConfigProvider(BankConfig{MaxCallDepth: 4})), conf)
	require.NoError(t, err)

	_, err = f.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "withdraw failed")
	assert.ErrorIs(t, err, movswap.ErrInsufficientFunds)
}

func TestBankConfigProvider(t *testing.T) {
	t.Setenv(bank.MaxCallDepthConfigEnvName, "2")

	fromEnv := bank.New(memory.New(), bankConfigProvider(BankConfig{}))
	fromFile := bank.New(memory.New(), bankConfigProvider(BankConfig{LamportsPerByteYear: 1, ExemptionThreshold: 1}))

	ctx := context.Background()
	assert.EqualValues(t, 2039280, fromEnv.Rent(ctx).MinimumBalance(165))
	assert.EqualValues(t, 128, fromFile.Rent(ctx).MinimumBalance(0))
}
