// Package runtime defines the contract between on-ledger programs and the
// host that executes them.
package runtime

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/system"
)

var (
	ErrNotEnoughAccountKeys  = solana.InstructionErrorNotEnoughAccountKeys
	ErrReadonlyLamportChange = solana.InstructionErrorReadonlyLamportChange
	ErrReadonlyDataModified  = solana.InstructionErrorReadonlyDataModified
	ErrAccountDataSizeChange = solana.InstructionErrorAccountDataSizeChanged
)

// NativeLoader owns the built-in programs of a host.
var NativeLoader ed25519.PublicKey

func init() {
	var err error

	NativeLoader, err = base58.Decode("NativeLoader1111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

// Program handles instructions addressed to its program id.
type Program interface {
	Process(ctx *Context, data []byte) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx *Context, data []byte) error

func (f ProgramFunc) Process(ctx *Context, data []byte) error {
	return f(ctx, data)
}

// SignerSeeds are the seeds, bump included, of a program derived address the
// invoking program signs for.
type SignerSeeds [][]byte

// Invoker performs cross-program invocations on behalf of the running program.
//
// Every account referenced by the instruction must have been passed to the
// running program. Signer privileges are granted either by the outer caller
// or by seeds that derive the account under the running program's id.
type Invoker interface {
	Invoke(ix solana.Instruction, seeds ...SignerSeeds) error
}

// Context is the view a program has of a single invocation.
type Context struct {
	ProgramID ed25519.PublicKey
	Accounts  []*Account
	Rent      system.Rent
	Invoker   Invoker
	Log       *logrus.Entry
}

// AccountAt returns the i'th account, or ErrNotEnoughAccountKeys.
func AccountAt(accounts []*Account, i int) (*Account, error) {
	if i < 0 || i >= len(accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	return accounts[i], nil
}

// Metas returns the account metas backing a set of account views, in order.
func Metas(accounts ...*Account) []solana.AccountMeta {
	metas := make([]solana.AccountMeta, len(accounts))
	for i, a := range accounts {
		metas[i] = solana.AccountMeta{
			PublicKey:  a.Key(),
			IsSigner:   a.IsSigner(),
			IsWritable: a.IsWritable(),
		}
	}
	return metas
}
