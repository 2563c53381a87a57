// Package bank is a local host for on-ledger programs. It loads accounts from
// an accounts.Store, runs instructions against an in-memory working set and
// commits the set atomically when every instruction succeeds.
package bank

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math/bits"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/mov-swap/pkg/metrics"
	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"
	"github.com/code-payments/mov-swap/pkg/solana/system"
	"github.com/code-payments/mov-swap/pkg/solana/token"
)

const (
	metricsStructName = "bank.Bank"

	transactionEventName    = "BankTransaction"
	transactionDurationName = "Bank.Execute"
	failedTransactionsName  = "Bank.FailedTransactions"
)

var (
	ErrProgramAlreadyDeployed = errors.New("program already deployed")
	ErrNoInstructions         = errors.New("transaction has no instructions")
)

// builtin is a program implemented by the host itself. Unlike deployed
// programs it may allocate and reassign accounts.
type builtin func(tx *transaction, ctx *runtime.Context, data []byte) error

type Bank struct {
	log   *logrus.Entry
	conf  *conf
	store accounts.Store
	locks *lockTable

	programsMu sync.RWMutex
	programs   map[string]runtime.Program
	builtins   map[string]builtin
}

func New(store accounts.Store, configProvider ConfigProvider) *Bank {
	return &Bank{
		log:   logrus.StandardLogger().WithField("type", "solana/runtime/bank"),
		conf:  configProvider(),
		store: store,
		locks: newLockTable(),
		programs: make(map[string]runtime.Program),
		builtins: map[string]builtin{
			string(system.ProgramKey[:]): processSystem,
			string(token.ProgramKey):     processToken,
		},
	}
}

// Deploy registers a program under the provided id.
func (b *Bank) Deploy(programID ed25519.PublicKey, program runtime.Program) error {
	b.programsMu.Lock()
	defer b.programsMu.Unlock()

	key := string(programID)
	if _, ok := b.builtins[key]; ok {
		return ErrProgramAlreadyDeployed
	}
	if _, ok := b.programs[key]; ok {
		return ErrProgramAlreadyDeployed
	}

	b.programs[key] = program
	b.log.WithField("program", base58.Encode(programID)).Debug("program deployed")
	return nil
}

func (b *Bank) isProgram(key ed25519.PublicKey) bool {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	_, isBuiltin := b.builtins[string(key)]
	_, isDeployed := b.programs[string(key)]
	return isBuiltin || isDeployed
}

func (b *Bank) lookup(key ed25519.PublicKey) (runtime.Program, builtin) {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	if fn, ok := b.builtins[string(key)]; ok {
		return nil, fn
	}
	return b.programs[string(key)], nil
}

// Rent returns the rent parameters programs are executed with.
func (b *Bank) Rent(ctx context.Context) system.Rent {
	return system.Rent{
		LamportsPerByteYear: b.conf.lamportsPerByteYear.Get(ctx),
		ExemptionThreshold:  b.conf.exemptionThreshold.Get(ctx),
	}
}

// GetAccount returns the committed state of an account.
//
// Returns accounts.ErrAccountNotFound if the account has never been written.
func (b *Bank) GetAccount(ctx context.Context, key ed25519.PublicKey) (*runtime.State, error) {
	record, err := b.store.Get(ctx, base58.Encode(key))
	if err != nil {
		return nil, err
	}
	return fromRecord(record)
}

// Airdrop credits lamports to an account, creating it as a system account if
// it does not exist.
func (b *Bank) Airdrop(ctx context.Context, key ed25519.PublicKey, lamports uint64) error {
	return b.withWorkingSet(ctx, []lockRequest{{key: string(key), mode: lockModeWrite}}, func(states map[string]*runtime.State) error {
		state := states[string(key)]

		balance, carry := bits.Add64(state.Lamports, lamports, 0)
		if carry != 0 {
			return solana.InstructionErrorArithmeticOverflow
		}
		state.Lamports = balance
		return nil
	})
}

// SetAccounts overwrites accounts outright. It is intended for seeding local
// ledgers and tests.
func (b *Bank) SetAccounts(ctx context.Context, states ...*runtime.State) error {
	requests := make([]lockRequest, len(states))
	for i, state := range states {
		requests[i] = lockRequest{key: string(state.Key), mode: lockModeWrite}
	}

	return b.withWorkingSet(ctx, requests, func(working map[string]*runtime.State) error {
		for _, state := range states {
			*working[string(state.Key)] = *state.Clone()
		}
		return nil
	})
}

// Execute runs the instructions as a single atomic transaction. Accounts
// marked as signers must be backed by one of the provided private keys.
//
// On failure no account changes are persisted and the returned error is a
// *solana.InstructionError identifying the failing instruction.
func (b *Bank) Execute(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Execute")
	tracer.AddAttribute("instructions", len(instructions))
	defer tracer.End()

	start := time.Now()
	defer func() {
		tracer.OnError(err)
		if err != nil {
			metrics.RecordCount(ctx, failedTransactionsName, 1)
		}

		metrics.RecordDuration(ctx, transactionDurationName, time.Since(start))
		metrics.RecordEvent(ctx, transactionEventName, map[string]interface{}{
			"instructions": len(instructions),
			"success":      err == nil,
			"error_key":    errorKey(err),
		})
	}()

	if len(instructions) == 0 {
		return ErrNoInstructions
	}

	signed := make(map[string]struct{})
	for _, signer := range signers {
		signed[string(signer.Public().(ed25519.PublicKey))] = struct{}{}
	}

	for i, ix := range instructions {
		for _, meta := range ix.Accounts {
			if !meta.IsSigner {
				continue
			}
			if _, ok := signed[string(meta.PublicKey)]; !ok {
				return solana.NewInstructionError(i, errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "%s", base58.Encode(meta.PublicKey)))
			}
		}
	}

	log := b.log.WithField("method", "Execute")

	return b.withWorkingSet(ctx, lockRequestsFor(instructions), func(states map[string]*runtime.State) error {
		tx := &transaction{
			bank:     b,
			log:      log,
			states:   states,
			rent:     b.Rent(ctx),
			maxDepth: int(b.conf.maxCallDepth.Get(ctx)),
		}

		for i, ix := range instructions {
			if err := tx.process(ix, mergePrivileges(ix.Accounts)); err != nil {
				log.WithError(err).WithField("instruction", i).Debug("instruction failed")
				return solana.NewInstructionError(i, err)
			}
		}
		return nil
	})
}

// withWorkingSet locks the requested keys, loads their state, runs fn and
// commits every changed account in one store write. Nothing is written if fn
// fails.
func (b *Bank) withWorkingSet(ctx context.Context, requests []lockRequest, fn func(states map[string]*runtime.State) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, b.conf.lockTimeout.Get(ctx))
	defer cancel()

	unlock, err := b.locks.acquire(lockCtx, requests)
	if err != nil {
		return errors.Wrap(err, "failed to acquire account locks")
	}
	defer unlock()

	states, original, err := b.load(ctx, requests)
	if err != nil {
		return err
	}

	if err := fn(states); err != nil {
		return err
	}

	var changed []*accounts.Record
	for _, r := range requests {
		state := states[r.key]
		if state.Equal(original[r.key]) {
			continue
		}
		changed = append(changed, toRecord(state))
	}

	if len(changed) == 0 {
		return nil
	}

	if err := b.store.Save(ctx, changed...); err != nil {
		return errors.Wrap(err, "failed to commit accounts")
	}
	return nil
}

func (b *Bank) load(ctx context.Context, requests []lockRequest) (states, original map[string]*runtime.State, err error) {
	addresses := make([]string, len(requests))
	for i, r := range requests {
		addresses[i] = base58.Encode([]byte(r.key))
	}

	records, err := b.store.GetMany(ctx, addresses...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load accounts")
	}

	states = make(map[string]*runtime.State, len(requests))
	for _, record := range records {
		state, err := fromRecord(record)
		if err != nil {
			return nil, nil, err
		}
		states[string(state.Key)] = state
	}

	for _, r := range requests {
		if _, ok := states[r.key]; ok {
			continue
		}

		key := ed25519.PublicKey(r.key)
		if b.isProgram(key) {
			states[r.key] = &runtime.State{
				Key:        key,
				Owner:      runtime.NativeLoader,
				Lamports:   1,
				Executable: true,
			}
		} else {
			owner := make(ed25519.PublicKey, ed25519.PublicKeySize)
			copy(owner, system.ProgramKey[:])
			states[r.key] = &runtime.State{
				Key:   key,
				Owner: owner,
			}
		}
	}

	original = make(map[string]*runtime.State, len(states))
	for key, state := range states {
		original[key] = state.Clone()
	}

	return states, original, nil
}

type privilege struct {
	signer   bool
	writable bool
}

// mergePrivileges folds duplicate metas into one privilege per key.
func mergePrivileges(metas []solana.AccountMeta) map[string]privilege {
	privileges := make(map[string]privilege, len(metas))
	for _, meta := range metas {
		p := privileges[string(meta.PublicKey)]
		p.signer = p.signer || meta.IsSigner
		p.writable = p.writable || meta.IsWritable
		privileges[string(meta.PublicKey)] = p
	}
	return privileges
}

func fromRecord(record *accounts.Record) (*runtime.State, error) {
	key, err := base58.Decode(record.Address)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(accounts.ErrInvalidAccount, "invalid address: %s", record.Address)
	}

	owner, err := base58.Decode(record.Owner)
	if err != nil || len(owner) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(accounts.ErrInvalidAccount, "invalid owner: %s", record.Owner)
	}

	data := make([]byte, len(record.Data))
	copy(data, record.Data)

	return &runtime.State{
		Key:        key,
		Owner:      owner,
		Lamports:   record.Lamports,
		Data:       data,
		Executable: record.Executable,
	}, nil
}

func toRecord(state *runtime.State) *accounts.Record {
	data := make([]byte, len(state.Data))
	copy(data, state.Data)

	return &accounts.Record{
		Address:    base58.Encode(state.Key),
		Owner:      base58.Encode(state.Owner),
		Lamports:   state.Lamports,
		Data:       data,
		Executable: state.Executable,
	}
}

func errorKey(err error) string {
	if err == nil {
		return ""
	}

	var ie *solana.InstructionError
	if errors.As(err, &ie) {
		return string(ie.ErrorKey())
	}
	return string(solana.InstructionErrorGenericError)
}

func isZeroed(data []byte) bool {
	return len(bytes.Trim(data, "\x00")) == 0
}
