package movswap

import (
	"bytes"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

// Processor executes swap program instructions inside a runtime host.
type Processor struct {
	log *logrus.Entry
}

func NewProcessor() *Processor {
	return &Processor{
		log: logrus.StandardLogger().WithField("type", "solana/movswap/processor"),
	}
}

// Process implements runtime.Program.Process
func (p *Processor) Process(ctx *runtime.Context, data []byte) error {
	op, err := DecodeOperation(data)
	if err != nil {
		return err
	}

	log := p.log
	if ctx.Log != nil {
		log = ctx.Log
	}
	log.Infof("Instruction: %s", op.Type())

	switch op := op.(type) {
	case InitializeOperation:
		return p.initialize(ctx)
	case SwapOperation:
		return p.swap(ctx, log)
	case WithdrawOperation:
		return p.withdraw(ctx, op.Amount)
	default:
		return errors.Wrapf(ErrUnknownTag, "operation %T", op)
	}
}

// Accounts:
//   0. [signer] initiator, becomes the admin
//   1. [writable] swap store
//   2. [writable] funded token account
//   3. [] token program
func (p *Processor) initialize(ctx *runtime.Context) error {
	initiator, record, funded, tokenProgram, err := initializeAccounts(ctx)
	if err != nil {
		return err
	}

	if !initiator.IsSigner() {
		return errors.Wrap(ErrAuthorization, "initiator did not sign")
	}
	if !record.IsOwnedBy(ctx.ProgramID) {
		return errors.Wrap(ErrOwnership, "swap store is not owned by the program")
	}
	if !funded.IsOwnedBy(token.ProgramKey) {
		return errors.Wrap(ErrOwnership, "funded account is not owned by the token program")
	}
	if !bytes.Equal(tokenProgram.Key(), token.ProgramKey) {
		return errors.Wrap(ErrOwnership, "unexpected token program")
	}

	if record.Lamports() < ctx.Rent.MinimumBalance(record.DataLen()) {
		return errors.Wrap(ErrFunding, "swap store is not rent exempt")
	}

	store, err := loadSwapStore(record)
	if err != nil {
		return err
	}
	if store.IsInitialized {
		return errors.Wrap(ErrState, "swap store already initialized")
	}

	signer, err := NewAuthoritySigner(ctx.ProgramID)
	if err != nil {
		return errors.Wrap(err, "failed to derive authority")
	}

	err = ctx.Invoker.Invoke(token.SetAuthority(
		funded.Key(),
		initiator.Key(),
		signer.Address,
		token.AuthorityTypeAccountHolder,
	))
	if err != nil {
		return newExternalServiceError(err)
	}

	store = &SwapStoreAccount{
		IsInitialized:      true,
		Admin:              initiator.Key(),
		AmountSwapped:      0,
		FundedTokenAccount: funded.Key(),
	}
	return saveSwapStore(record, store)
}

// Accounts:
//   0. [signer] initiator
//   1. [writable] funded token account
//   2. [writable] receiving token account
//   3. [writable] escrow holding the lamports to swap
//   4. [writable] swap store
//   5. [] token program
//   6. [] derived authority
func (p *Processor) swap(ctx *runtime.Context, log *logrus.Entry) error {
	accounts := make([]*runtime.Account, 7)
	for i := range accounts {
		account, err := runtime.AccountAt(ctx.Accounts, i)
		if err != nil {
			return err
		}
		accounts[i] = account
	}
	initiator, funded, receiver, escrow, record, tokenProgram, authority := accounts[0], accounts[1], accounts[2], accounts[3], accounts[4], accounts[5], accounts[6]

	if !initiator.IsSigner() {
		return errors.Wrap(ErrAuthorization, "initiator did not sign")
	}
	if !escrow.IsOwnedBy(ctx.ProgramID) {
		return errors.Wrap(ErrOwnership, "escrow is not owned by the program")
	}
	if !record.IsOwnedBy(ctx.ProgramID) {
		return errors.Wrap(ErrOwnership, "swap store is not owned by the program")
	}
	if !receiver.IsOwnedBy(token.ProgramKey) {
		return errors.Wrap(ErrOwnership, "receiving account is not owned by the token program")
	}
	if !bytes.Equal(tokenProgram.Key(), token.ProgramKey) {
		return errors.Wrap(ErrOwnership, "unexpected token program")
	}

	store, err := loadSwapStore(record)
	if err != nil {
		return err
	}
	if !store.IsInitialized {
		return errors.Wrap(ErrState, "swap store is not initialized")
	}

	if !bytes.Equal(funded.Key(), store.FundedTokenAccount) {
		return errors.Wrap(ErrInvalidRecordReference, "funded account does not match swap store")
	}

	signer, err := NewAuthoritySigner(ctx.ProgramID)
	if err != nil {
		return errors.Wrap(err, "failed to derive authority")
	}
	if !bytes.Equal(authority.Key(), signer.Address) {
		return errors.Wrap(ErrInvalidRecordReference, "unexpected authority")
	}
	if bytes.Equal(escrow.Key(), record.Key()) {
		return errors.Wrap(ErrInvalidRecordReference, "escrow cannot be the swap store")
	}

	moved := escrow.Lamports()

	hi, tokens := bits.Mul64(moved, SwapRatio)
	if hi != 0 {
		return errors.Wrap(ErrArithmeticOverflow, "token amount")
	}
	amountSwapped, carry := bits.Add64(store.AmountSwapped, moved, 0)
	if carry != 0 {
		return errors.Wrap(ErrArithmeticOverflow, "amount swapped")
	}
	balance, carry := bits.Add64(record.Lamports(), moved, 0)
	if carry != 0 {
		return errors.Wrap(ErrArithmeticOverflow, "swap store balance")
	}

	if err := escrow.SetLamports(0); err != nil {
		return err
	}
	if err := record.SetLamports(balance); err != nil {
		return err
	}
	store.AmountSwapped = amountSwapped

	log.WithField("lamports", moved).WithField("tokens", tokens).Debug("transferring tokens")

	err = ctx.Invoker.Invoke(
		token.Transfer(funded.Key(), receiver.Key(), signer.Address, tokens),
		signer.Seeds(),
	)
	if err != nil {
		return newExternalServiceError(err)
	}

	return saveSwapStore(record, store)
}

// Accounts:
//   0. [writable, signer] admin
//   1. [writable] swap store
func (p *Processor) withdraw(ctx *runtime.Context, amount uint64) error {
	admin, err := runtime.AccountAt(ctx.Accounts, 0)
	if err != nil {
		return err
	}
	record, err := runtime.AccountAt(ctx.Accounts, 1)
	if err != nil {
		return err
	}

	if !admin.IsSigner() {
		return errors.Wrap(ErrAuthorization, "admin did not sign")
	}
	if !record.IsOwnedBy(ctx.ProgramID) {
		return errors.Wrap(ErrOwnership, "swap store is not owned by the program")
	}

	store, err := loadSwapStore(record)
	if err != nil {
		return err
	}
	if !store.IsInitialized {
		return errors.Wrap(ErrState, "swap store is not initialized")
	}
	if !bytes.Equal(admin.Key(), store.Admin) {
		return errors.Wrap(ErrAuthorization, "signer is not the admin")
	}
	if bytes.Equal(admin.Key(), record.Key()) {
		return errors.Wrap(ErrInvalidRecordReference, "admin cannot be the swap store")
	}

	floor := ctx.Rent.MinimumBalance(record.DataLen())
	balance := record.Lamports()
	if balance < floor || balance-floor < amount {
		return errors.Wrapf(ErrInsufficientFunds, "%d lamports available", saturatingSub(balance, floor))
	}

	adminBalance, carry := bits.Add64(admin.Lamports(), amount, 0)
	if carry != 0 {
		return errors.Wrap(ErrArithmeticOverflow, "admin balance")
	}

	if err := record.SetLamports(balance - amount); err != nil {
		return err
	}
	return admin.SetLamports(adminBalance)
}

func initializeAccounts(ctx *runtime.Context) (initiator, record, funded, tokenProgram *runtime.Account, err error) {
	if initiator, err = runtime.AccountAt(ctx.Accounts, 0); err != nil {
		return
	}
	if record, err = runtime.AccountAt(ctx.Accounts, 1); err != nil {
		return
	}
	if funded, err = runtime.AccountAt(ctx.Accounts, 2); err != nil {
		return
	}
	tokenProgram, err = runtime.AccountAt(ctx.Accounts, 3)
	return
}

func loadSwapStore(record *runtime.Account) (*SwapStoreAccount, error) {
	var store SwapStoreAccount
	if err := store.Unmarshal(record.Data()); err != nil {
		return nil, errors.Wrap(ErrState, err.Error())
	}
	return &store, nil
}

func saveSwapStore(record *runtime.Account, store *SwapStoreAccount) error {
	encoded, err := store.Marshal()
	if err != nil {
		return err
	}

	data := record.Data()
	copy(data, encoded)
	return record.SetData(data)
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
