package token

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

const optionSize = 4

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L38
const MintSize = 82

var (
	ErrInvalidAccountSize = errors.New("invalid token account size")
	ErrInvalidMintSize    = errors.New("invalid mint size")
)

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	putKey(b, a.Mint, &offset)
	putKey(b, a.Owner, &offset)
	putUint64(b, a.Amount, &offset)
	putOptionalKey(b, a.Delegate, &offset)
	putUint8(b, uint8(a.State), &offset)
	putOptionalUint64(b, a.IsNative, &offset)
	putUint64(b, a.DelegatedAmount, &offset)
	putOptionalKey(b, a.CloseAuthority, &offset)

	return b
}

func (a *Account) Unmarshal(b []byte) error {
	if len(b) != AccountSize {
		return ErrInvalidAccountSize
	}

	var offset int
	var state uint8
	getKey(b, &a.Mint, &offset)
	getKey(b, &a.Owner, &offset)
	getUint64(b, &a.Amount, &offset)
	getOptionalKey(b, &a.Delegate, &offset)
	getUint8(b, &state, &offset)
	getOptionalUint64(b, &a.IsNative, &offset)
	getUint64(b, &a.DelegatedAmount, &offset)
	getOptionalKey(b, &a.CloseAuthority, &offset)
	a.State = AccountState(state)

	return nil
}

func (a *Account) String() string {
	return fmt.Sprintf(
		"TokenAccount{mint=%s,owner=%s,amount=%d,state=%d}",
		base58.Encode(a.Mint),
		base58.Encode(a.Owner),
		a.Amount,
		a.State,
	)
}

type Mint struct {
	// Optional authority used to mint new tokens.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals uint8
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)

	var offset int
	var isInitialized uint8
	if m.IsInitialized {
		isInitialized = 1
	}

	putOptionalKey(b, m.MintAuthority, &offset)
	putUint64(b, m.Supply, &offset)
	putUint8(b, m.Decimals, &offset)
	putUint8(b, isInitialized, &offset)
	putOptionalKey(b, m.FreezeAuthority, &offset)

	return b
}

func (m *Mint) Unmarshal(b []byte) error {
	if len(b) != MintSize {
		return ErrInvalidMintSize
	}

	var offset int
	var isInitialized uint8
	getOptionalKey(b, &m.MintAuthority, &offset)
	getUint64(b, &m.Supply, &offset)
	getUint8(b, &m.Decimals, &offset)
	getUint8(b, &isInitialized, &offset)
	getOptionalKey(b, &m.FreezeAuthority, &offset)
	m.IsInitialized = isInitialized == 1

	return nil
}
