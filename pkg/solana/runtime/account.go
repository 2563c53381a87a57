package runtime

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

// State is the host-side state of an account for the duration of a
// transaction. Every view onto the same key shares one State.
type State struct {
	Key        ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

func (s *State) Clone() *State {
	cloned := &State{
		Key:        make(ed25519.PublicKey, len(s.Key)),
		Owner:      make(ed25519.PublicKey, len(s.Owner)),
		Lamports:   s.Lamports,
		Data:       make([]byte, len(s.Data)),
		Executable: s.Executable,
	}

	copy(cloned.Key, s.Key)
	copy(cloned.Owner, s.Owner)
	copy(cloned.Data, s.Data)

	return cloned
}

func (s *State) Equal(other *State) bool {
	return bytes.Equal(s.Key, other.Key) &&
		bytes.Equal(s.Owner, other.Owner) &&
		s.Lamports == other.Lamports &&
		bytes.Equal(s.Data, other.Data) &&
		s.Executable == other.Executable
}

func (s *State) String() string {
	return fmt.Sprintf(
		"State{Key=%s,Owner=%s,Lamports=%d,DataLen=%d,Executable=%t}",
		base58.Encode(s.Key),
		base58.Encode(s.Owner),
		s.Lamports,
		len(s.Data),
		s.Executable,
	)
}

// Account is a program's privileged view of an account. Mutations through a
// readonly view are rejected.
type Account struct {
	state      *State
	isSigner   bool
	isWritable bool
}

func NewAccount(state *State, isSigner, isWritable bool) *Account {
	return &Account{
		state:      state,
		isSigner:   isSigner,
		isWritable: isWritable,
	}
}

func (a *Account) Key() ed25519.PublicKey {
	return a.state.Key
}

func (a *Account) Owner() ed25519.PublicKey {
	return a.state.Owner
}

func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.state.Owner, program)
}

func (a *Account) IsSigner() bool {
	return a.isSigner
}

func (a *Account) IsWritable() bool {
	return a.isWritable
}

func (a *Account) Executable() bool {
	return a.state.Executable
}

func (a *Account) Lamports() uint64 {
	return a.state.Lamports
}

func (a *Account) SetLamports(lamports uint64) error {
	if !a.isWritable {
		return ErrReadonlyLamportChange
	}

	a.state.Lamports = lamports
	return nil
}

func (a *Account) DataLen() int {
	return len(a.state.Data)
}

// Data returns a copy of the account data.
func (a *Account) Data() []byte {
	data := make([]byte, len(a.state.Data))
	copy(data, a.state.Data)
	return data
}

// SetData replaces the account data. The length must not change.
func (a *Account) SetData(data []byte) error {
	if !a.isWritable {
		return ErrReadonlyDataModified
	}
	if len(data) != len(a.state.Data) {
		return ErrAccountDataSizeChange
	}

	copy(a.state.Data, data)
	return nil
}

func (a *Account) String() string {
	return fmt.Sprintf("%s(signer=%t,writable=%t)", base58.Encode(a.state.Key), a.isSigner, a.isWritable)
}
