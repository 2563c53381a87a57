package movswap

import (
	"crypto/ed25519"

	"github.com/code-payments/mov-swap/pkg/solana"
	"github.com/code-payments/mov-swap/pkg/solana/runtime"
)

var (
	AuthorityPrefix = []byte("mov_swap")
)

const (
	SwapStoreSeed    = "swapStoreAccount"
	SwapLamportsSeed = "swapLamportsAccount"
)

// GetAuthorityAddress derives the address that holds authority over the
// funded token account on behalf of the program.
func GetAuthorityAddress(program ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		AuthorityPrefix,
	)
}

// AuthoritySigner is the capability to sign as the derived authority. Only
// the program it was derived for can use it.
type AuthoritySigner struct {
	Address ed25519.PublicKey
	Bump    uint8
}

func NewAuthoritySigner(program ed25519.PublicKey) (*AuthoritySigner, error) {
	address, bump, err := GetAuthorityAddress(program)
	if err != nil {
		return nil, err
	}

	return &AuthoritySigner{
		Address: address,
		Bump:    bump,
	}, nil
}

// Seeds returns the signer seeds presented to the host on invocation.
func (s *AuthoritySigner) Seeds() runtime.SignerSeeds {
	return runtime.SignerSeeds{
		AuthorityPrefix,
		{s.Bump},
	}
}

type GetSwapStoreAddressArgs struct {
	Owner ed25519.PublicKey
}

// GetSwapStoreAddress returns the record address clients allocate with
// CreateAccountWithSeed.
func GetSwapStoreAddress(args *GetSwapStoreAddressArgs) (ed25519.PublicKey, error) {
	return solana.CreateWithSeed(
		args.Owner,
		SwapStoreSeed,
		PROGRAM_ID,
	)
}

type GetSwapLamportsAddressArgs struct {
	Owner ed25519.PublicKey
}

// GetSwapLamportsAddress returns the escrow address a swapper funds before
// calling Swap.
func GetSwapLamportsAddress(args *GetSwapLamportsAddressArgs) (ed25519.PublicKey, error) {
	return solana.CreateWithSeed(
		args.Owner,
		SwapLamportsSeed,
		PROGRAM_ID,
	)
}
