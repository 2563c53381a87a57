package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

var (
	// SystemAccount is the owner of every account no program has claimed.
	SystemAccount = mustDecode("11111111111111111111111111111111")

	// RentSysVar is the Rent sysvar. Token account initialization lists it,
	// but the local bank serves rent from configuration and never loads it.
	RentSysVar = mustDecode("SysvarRent111111111111111111111111111111111")
)

func mustDecode(address string) ed25519.PublicKey {
	decoded, err := base58.Decode(address)
	if err != nil {
		panic(err)
	}
	return decoded
}
