package runtime

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Writable(t *testing.T) {
	state := &State{
		Key:      newKey(t),
		Owner:    newKey(t),
		Lamports: 10,
		Data:     []byte{1, 2, 3},
	}

	account := NewAccount(state, false, true)
	assert.True(t, account.IsOwnedBy(state.Owner))

	require.NoError(t, account.SetLamports(20))
	assert.EqualValues(t, 20, account.Lamports())
	assert.EqualValues(t, 20, state.Lamports)

	data := account.Data()
	data[0] = 9
	assert.EqualValues(t, 1, state.Data[0])

	require.NoError(t, account.SetData(data))
	assert.Equal(t, []byte{9, 2, 3}, state.Data)

	assert.True(t, errors.Is(account.SetData([]byte{1}), ErrAccountDataSizeChange))
	assert.Equal(t, 3, account.DataLen())
}

func TestAccount_Readonly(t *testing.T) {
	state := &State{
		Key:      newKey(t),
		Owner:    newKey(t),
		Lamports: 10,
		Data:     []byte{1, 2, 3},
	}

	account := NewAccount(state, true, false)
	assert.Equal(t, ErrReadonlyLamportChange, account.SetLamports(1))
	assert.Equal(t, ErrReadonlyDataModified, account.SetData([]byte{0, 0, 0}))
	assert.EqualValues(t, 10, state.Lamports)
	assert.Equal(t, []byte{1, 2, 3}, state.Data)
}

func TestAccount_SharedState(t *testing.T) {
	state := &State{
		Key:   newKey(t),
		Owner: newKey(t),
		Data:  make([]byte, 4),
	}

	first := NewAccount(state, false, true)
	second := NewAccount(state, false, true)

	require.NoError(t, first.SetLamports(5))
	require.NoError(t, first.SetData([]byte{1, 1, 1, 1}))
	assert.EqualValues(t, 5, second.Lamports())
	assert.Equal(t, []byte{1, 1, 1, 1}, second.Data())
}

func TestState_CloneEqual(t *testing.T) {
	state := &State{
		Key:      newKey(t),
		Owner:    newKey(t),
		Lamports: 7,
		Data:     []byte{4, 5},
	}

	cloned := state.Clone()
	assert.True(t, state.Equal(cloned))

	cloned.Data[0] = 0
	assert.False(t, state.Equal(cloned))
	assert.EqualValues(t, 4, state.Data[0])
}

func TestAccountAt(t *testing.T) {
	accounts := []*Account{
		NewAccount(&State{Key: newKey(t)}, true, false),
		NewAccount(&State{Key: newKey(t)}, false, true),
	}

	account, err := AccountAt(accounts, 1)
	require.NoError(t, err)
	assert.Equal(t, accounts[1], account)

	_, err = AccountAt(accounts, 2)
	assert.Equal(t, ErrNotEnoughAccountKeys, err)

	_, err = AccountAt(accounts, -1)
	assert.Equal(t, ErrNotEnoughAccountKeys, err)

	metas := Metas(accounts...)
	require.Len(t, metas, 2)
	assert.True(t, metas[0].IsSigner)
	assert.False(t, metas[0].IsWritable)
	assert.True(t, metas[1].IsWritable)
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}
