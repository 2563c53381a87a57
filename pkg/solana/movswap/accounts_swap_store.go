package movswap

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

const (
	SwapStoreAccountSize = (1 + // is_initialized
		32 + // admin
		8 + // amount_swapped
		32) // funded_token_account

	// DefaultSwapStoreAllocation is the storage size clients allocate for the
	// record. Only the first SwapStoreAccountSize bytes are used.
	DefaultSwapStoreAllocation = 129
)

var ErrInvalidAccountData = errors.New("unexpected account data")

type SwapStoreAccount struct {
	IsInitialized      bool
	Admin              ed25519.PublicKey
	AmountSwapped      uint64
	FundedTokenAccount ed25519.PublicKey
}

// swapStoreLayout is the borsh wire form of SwapStoreAccount.
type swapStoreLayout struct {
	IsInitialized      bool
	Admin              [ed25519.PublicKeySize]byte
	AmountSwapped      uint64
	FundedTokenAccount [ed25519.PublicKeySize]byte
}

func (obj *SwapStoreAccount) Marshal() ([]byte, error) {
	var layout swapStoreLayout

	layout.IsInitialized = obj.IsInitialized
	layout.AmountSwapped = obj.AmountSwapped
	copy(layout.Admin[:], obj.Admin)
	copy(layout.FundedTokenAccount[:], obj.FundedTokenAccount)

	data, err := borsh.Serialize(layout)
	if err != nil {
		return nil, errors.Wrap(err, "error serializing swap store")
	}
	if len(data) != SwapStoreAccountSize {
		return nil, errors.Errorf("unexpected serialized swap store size: %d", len(data))
	}
	return data, nil
}

// Unmarshal decodes the record from the start of data. Trailing bytes are
// ignored.
func (obj *SwapStoreAccount) Unmarshal(data []byte) error {
	if len(data) < SwapStoreAccountSize {
		return ErrInvalidAccountData
	}

	var layout swapStoreLayout
	if err := borsh.Deserialize(&layout, data[:SwapStoreAccountSize]); err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	obj.IsInitialized = layout.IsInitialized
	obj.AmountSwapped = layout.AmountSwapped
	obj.Admin = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(obj.Admin, layout.Admin[:])
	obj.FundedTokenAccount = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(obj.FundedTokenAccount, layout.FundedTokenAccount[:])

	return nil
}

func (obj *SwapStoreAccount) String() string {
	return fmt.Sprintf(
		"SwapStore{is_initialized=%t,admin=%s,amount_swapped=%d,funded_token_account=%s}",
		obj.IsInitialized,
		base58.Encode(obj.Admin),
		obj.AmountSwapped,
		base58.Encode(obj.FundedTokenAccount),
	)
}
