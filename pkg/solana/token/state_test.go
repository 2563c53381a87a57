package token

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Unmarshal(t *testing.T) {
	data, err := hex.DecodeString("118a08c9d4cc46c576282e0daf050bbdb04f03313e35e5db3f3def69fa1eeec42b15a9cd4bef2cd809e464570d2a6cbd9bcc64e32ea4ebbcf748757bbb3dd5bd000084e2506ce67c000000000000000000000000000000000000000000000000000000000000000000000000010000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	mint, err := base58.Decode("2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm")
	require.NoError(t, err)

	var a Account
	require.NoError(t, a.Unmarshal(data))
	assert.Equal(t, mint, []byte(a.Mint))
	assert.Equal(t, uint64(9e13*1e5), a.Amount)
	assert.Equal(t, AccountStateInitialized, a.State)
	assert.Empty(t, a.Delegate)
	assert.Empty(t, a.CloseAuthority)
	assert.Equal(t, data, a.Marshal())

	assert.Equal(t, ErrInvalidAccountSize, a.Unmarshal(data[:AccountSize-1]))
}

func TestAccount_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 4)

	isNative := uint64(2039280)
	expected := Account{
		Mint:            keys[0],
		Owner:           keys[1],
		Amount:          10,
		Delegate:        keys[2],
		State:           AccountStateFrozen,
		IsNative:        &isNative,
		DelegatedAmount: 7,
		CloseAuthority:  keys[3],
	}

	b := expected.Marshal()
	require.Len(t, b, AccountSize)

	var actual Account
	require.NoError(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)
}

func TestMint_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 2)

	expected := Mint{
		MintAuthority:   keys[0],
		Supply:          1_000_000,
		Decimals:        6,
		IsInitialized:   true,
		FreezeAuthority: keys[1],
	}

	b := expected.Marshal()
	require.Len(t, b, MintSize)
	assert.EqualValues(t, 1, b[0])
	assert.EqualValues(t, 6, b[44])
	assert.EqualValues(t, 1, b[45])

	var actual Mint
	require.NoError(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)

	withoutAuthorities := Mint{Supply: 5, IsInitialized: true}
	actual = Mint{}
	require.NoError(t, actual.Unmarshal(withoutAuthorities.Marshal()))
	assert.Equal(t, withoutAuthorities, actual)

	assert.Equal(t, ErrInvalidMintSize, actual.Unmarshal(b[1:]))
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
