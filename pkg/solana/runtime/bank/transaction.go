package bank

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
	"github.com/code-payments/mov-swap/pkg/solana/system"
)

// transaction is the working set and call stack of a single Execute call.
type transaction struct {
	bank     *Bank
	log      *logrus.Entry
	states   map[string]*runtime.State
	rent     system.Rent
	maxDepth int

	stack []*frame
}

// frame is one program invocation. pre holds the account states the program
// is accountable for; it is rebased after every successful cross-program
// invocation so that callee changes are not attributed to the caller.
type frame struct {
	programID  ed25519.PublicKey
	privileges map[string]privilege
	pre        map[string]*runtime.State
}

func (tx *transaction) process(ix solana.Instruction, privileges map[string]privilege) error {
	program, fn := tx.bank.lookup(ix.Program)
	if program == nil && fn == nil {
		return errors.Wrapf(solana.InstructionErrorUnsupportedProgramID, "%s", base58.Encode(ix.Program))
	}

	if len(tx.stack) >= tx.maxDepth {
		return solana.InstructionErrorCallDepth
	}
	// Direct self-recursion is permitted, re-entering a program further up
	// the stack is not.
	if len(tx.stack) > 0 && !bytes.Equal(tx.stack[len(tx.stack)-1].programID, ix.Program) {
		for _, f := range tx.stack {
			if bytes.Equal(f.programID, ix.Program) {
				return solana.InstructionErrorReentrancyNotAllowed
			}
		}
	}

	views := make([]*runtime.Account, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		state, ok := tx.states[string(meta.PublicKey)]
		if !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "%s", base58.Encode(meta.PublicKey))
		}

		p := privileges[string(meta.PublicKey)]
		views[i] = runtime.NewAccount(state, p.signer, p.writable)
	}

	f := &frame{
		programID:  ix.Program,
		privileges: privileges,
	}
	f.pre = tx.snapshot(f)

	tx.stack = append(tx.stack, f)
	defer func() {
		tx.stack = tx.stack[:len(tx.stack)-1]
	}()

	ctx := &runtime.Context{
		ProgramID: ix.Program,
		Accounts:  views,
		Rent:      tx.rent,
		Invoker: &invoker{
			tx:    tx,
			frame: f,
		},
		Log: tx.log.WithField("program", base58.Encode(ix.Program)),
	}

	var err error
	if fn != nil {
		err = fn(tx, ctx, ix.Data)
	} else {
		err = program.Process(ctx, ix.Data)
	}
	if err != nil {
		return err
	}

	return tx.verify(f)
}

func (tx *transaction) snapshot(f *frame) map[string]*runtime.State {
	snapshot := make(map[string]*runtime.State, len(f.privileges))
	for key := range f.privileges {
		snapshot[key] = tx.states[key].Clone()
	}
	return snapshot
}

// verify checks the changes made by a frame's program since its snapshot:
// readonly accounts are untouched, only the owner debits lamports, modifies
// data or reassigns the account, and lamports are conserved.
func (tx *transaction) verify(f *frame) error {
	var preHi, preLo, postHi, postLo, carry uint64

	for key, pre := range f.pre {
		post := tx.states[key]
		writable := f.privileges[key].writable
		isOwner := bytes.Equal(pre.Owner, f.programID)

		if !bytes.Equal(pre.Owner, post.Owner) {
			if !writable || !isOwner || !isZeroed(post.Data) {
				return errors.Wrapf(solana.InstructionErrorModifiedProgramID, "%s", base58.Encode(post.Key))
			}
		}

		if pre.Executable != post.Executable {
			return errors.Wrapf(solana.InstructionErrorExecutableModified, "%s", base58.Encode(post.Key))
		}

		if pre.Lamports != post.Lamports {
			if !writable {
				return errors.Wrapf(solana.InstructionErrorReadonlyLamportChange, "%s", base58.Encode(post.Key))
			}
			if post.Lamports < pre.Lamports && !isOwner {
				return errors.Wrapf(solana.InstructionErrorExternalAccountLamportSpend, "%s", base58.Encode(post.Key))
			}
		}

		if !bytes.Equal(pre.Data, post.Data) {
			if !writable {
				return errors.Wrapf(solana.InstructionErrorReadonlyDataModified, "%s", base58.Encode(post.Key))
			}
			if !isOwner {
				return errors.Wrapf(solana.InstructionErrorExternalAccountDataModified, "%s", base58.Encode(post.Key))
			}
		}

		preLo, carry = bits.Add64(preLo, pre.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, post.Lamports, 0)
		postHi += carry
	}

	if preHi != postHi || preLo != postLo {
		return solana.InstructionErrorUnbalancedInstruction
	}
	return nil
}

type invoker struct {
	tx    *transaction
	frame *frame
}

// Invoke implements runtime.Invoker.Invoke
func (i *invoker) Invoke(ix solana.Instruction, seeds ...runtime.SignerSeeds) error {
	caller := i.frame

	// Changes made before the call are checked against the caller now, so
	// the callee starts from a consistent state.
	if err := i.tx.verify(caller); err != nil {
		return err
	}

	derived := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		address, err := solana.CreateProgramAddress(caller.programID, s...)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
		}
		derived[string(address)] = struct{}{}
	}

	privileges := mergePrivileges(ix.Accounts)
	for key, p := range privileges {
		callerPrivilege, ok := caller.privileges[key]
		if !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "%s", base58.Encode([]byte(key)))
		}

		if p.writable && !callerPrivilege.writable {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "%s is not writable", base58.Encode([]byte(key)))
		}

		if p.signer && !callerPrivilege.signer {
			if _, ok := derived[key]; !ok {
				return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "%s did not sign", base58.Encode([]byte(key)))
			}
		}
	}

	before := i.tx.snapshot(caller)
	if err := i.tx.process(ix, privileges); err != nil {
		// A failed callee leaves no trace, even if the caller carries on.
		for key, state := range before {
			*i.tx.states[key] = *state.Clone()
		}
		caller.pre = before
		return err
	}

	caller.pre = i.tx.snapshot(caller)
	return nil
}
