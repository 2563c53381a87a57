package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/mov-swap/pkg/solana/movswap"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/bank"
	"github.com/code-payments/mov-swap/pkg/solana/system"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

// Summary is the ledger state after a flow run.
type Summary struct {
	SwapStore      string
	AmountSwapped  uint64
	StoreLamports  uint64
	ReceivedTokens uint64
	AdminLamports  uint64
}

type flow struct {
	log  *logrus.Entry
	conf FlowConfig
	bank *bank.Bank

	admin   ed25519.PrivateKey
	swapper ed25519.PrivateKey
	mint    ed25519.PrivateKey

	funded   ed25519.PrivateKey
	receiver ed25519.PrivateKey

	store  ed25519.PublicKey
	escrow ed25519.PublicKey
}

func newFlow(b *bank.Bank, conf FlowConfig) (*flow, error) {
	f := &flow{
		log:  logrus.StandardLogger().WithField("type", "cmd/movswap-local"),
		conf: conf,
		bank: b,
	}

	for _, key := range []*ed25519.PrivateKey{&f.admin, &f.swapper, &f.mint, &f.funded, &f.receiver} {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate key")
		}
		*key = priv
	}

	var err error
	f.store, err = movswap.GetSwapStoreAddress(&movswap.GetSwapStoreAddressArgs{Owner: public(f.admin)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive swap store address")
	}

	f.escrow, err = movswap.GetSwapLamportsAddress(&movswap.GetSwapLamportsAddressArgs{Owner: public(f.swapper)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive swap lamports address")
	}

	return f, nil
}

// run sets up the token side, then initializes the swap, swaps and withdraws
// as separate transactions.
func (f *flow) run(ctx context.Context) (*Summary, error) {
	if err := f.bank.Deploy(movswap.PROGRAM_ID, movswap.NewProcessor()); err != nil && err != bank.ErrProgramAlreadyDeployed {
		return nil, errors.Wrap(err, "failed to deploy program")
	}

	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"airdrop", f.airdrop},
		{"create token accounts", f.createTokenAccounts},
		{"initialize", f.initialize},
		{"swap", f.swap},
		{"withdraw", f.withdraw},
	} {
		if err := step.fn(ctx); err != nil {
			return nil, errors.Wrapf(err, "%s failed", step.name)
		}
		f.log.WithField("step", step.name).Info("step complete")
	}

	return f.summarize(ctx)
}

func (f *flow) airdrop(ctx context.Context) error {
	for _, key := range []ed25519.PrivateKey{f.admin, f.swapper} {
		if err := f.bank.Airdrop(ctx, public(key), f.conf.Airdrop); err != nil {
			return err
		}
	}
	return nil
}

func (f *flow) createTokenAccounts(ctx context.Context) error {
	rent := f.bank.Rent(ctx)
	mintBalance := rent.MinimumBalance(token.MintSize)
	accountBalance := rent.MinimumBalance(token.AccountSize)

	return f.bank.Execute(
		ctx,
		[]ed25519.PrivateKey{f.admin, f.swapper, f.mint, f.funded, f.receiver},
		system.CreateAccount(public(f.admin), public(f.mint), token.ProgramKey, mintBalance, token.MintSize),
		token.InitializeMint(public(f.mint), public(f.admin), nil, 0),
		system.CreateAccount(public(f.admin), public(f.funded), token.ProgramKey, accountBalance, token.AccountSize),
		token.InitializeAccount(public(f.funded), public(f.mint), public(f.admin)),
		system.CreateAccount(public(f.swapper), public(f.receiver), token.ProgramKey, accountBalance, token.AccountSize),
		token.InitializeAccount(public(f.receiver), public(f.mint), public(f.swapper)),
		token.MintTo(public(f.mint), public(f.funded), public(f.admin), f.conf.TokenSupply),
	)
}

// initialize allocates the record and hands the funded token account to the
// program authority in one transaction.
func (f *flow) initialize(ctx context.Context) error {
	rent := f.bank.Rent(ctx)
	lamports := rent.MinimumBalance(movswap.DefaultSwapStoreAllocation) + f.conf.StoreSurplus

	return f.bank.Execute(
		ctx,
		[]ed25519.PrivateKey{f.admin},
		system.CreateAccountWithSeed(
			public(f.admin),
			f.store,
			public(f.admin),
			movswap.SwapStoreSeed,
			lamports,
			movswap.DefaultSwapStoreAllocation,
			movswap.PROGRAM_ID,
		),
		movswap.NewInitializeInstruction(&movswap.InitializeInstructionAccounts{
			Initiator:          public(f.admin),
			SwapStore:          f.store,
			FundedTokenAccount: public(f.funded),
		}),
	)
}

// swap funds the escrow and swaps it in the same transaction, so the escrow
// never holds lamports between calls.
func (f *flow) swap(ctx context.Context) error {
	authority, _, err := movswap.GetAuthorityAddress(movswap.PROGRAM_ID)
	if err != nil {
		return err
	}

	return f.bank.Execute(
		ctx,
		[]ed25519.PrivateKey{f.swapper},
		system.CreateAccountWithSeed(
			public(f.swapper),
			f.escrow,
			public(f.swapper),
			movswap.SwapLamportsSeed,
			f.conf.SwapLamports,
			0,
			movswap.PROGRAM_ID,
		),
		movswap.NewSwapInstruction(&movswap.SwapInstructionAccounts{
			Initiator:            public(f.swapper),
			FundedTokenAccount:   public(f.funded),
			ReceiverTokenAccount: public(f.receiver),
			SwapLamports:         f.escrow,
			SwapStore:            f.store,
			Authority:            authority,
		}),
	)
}

func (f *flow) withdraw(ctx context.Context) error {
	return f.bank.Execute(
		ctx,
		[]ed25519.PrivateKey{f.admin},
		movswap.NewWithdrawInstruction(
			&movswap.WithdrawInstructionAccounts{
				Admin:     public(f.admin),
				SwapStore: f.store,
			},
			&movswap.WithdrawInstructionArgs{Amount: f.conf.WithdrawAmount},
		),
	)
}

func (f *flow) summarize(ctx context.Context) (*Summary, error) {
	storeState, err := f.bank.GetAccount(ctx, f.store)
	if err != nil {
		return nil, err
	}

	var record movswap.SwapStoreAccount
	if err := record.Unmarshal(storeState.Data); err != nil {
		return nil, err
	}

	receiverState, err := f.bank.GetAccount(ctx, public(f.receiver))
	if err != nil {
		return nil, err
	}

	var received token.Account
	if err := received.Unmarshal(receiverState.Data); err != nil {
		return nil, err
	}

	adminState, err := f.bank.GetAccount(ctx, public(f.admin))
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		SwapStore:      base58.Encode(f.store),
		AmountSwapped:  record.AmountSwapped,
		StoreLamports:  storeState.Lamports,
		ReceivedTokens: received.Amount,
		AdminLamports:  adminState.Lamports,
	}

	f.log.WithFields(logrus.Fields{
		"swap_store":      summary.SwapStore,
		"amount_swapped":  summary.AmountSwapped,
		"store_lamports":  summary.StoreLamports,
		"received_tokens": summary.ReceivedTokens,
		"admin_lamports":  summary.AdminLamports,
	}).Info("flow complete")

	return summary, nil
}

func public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
