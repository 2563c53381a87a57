package system

import (
	"math"
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs
const (
	// AccountStorageOverhead is the number of bytes charged on top of an
	// account's data length.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 1_000_000_000 / 100 * 365 / (1024 * 1024)
	DefaultExemptionThreshold  = 2.0
)

// Rent holds the parameters used to compute the rent-exemption floor of an
// account. It is passed explicitly to programs rather than read from a
// global sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent returns the mainnet rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the minimum lamport balance an account with dataLen
// bytes of data must hold to be rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead + dataLen)
	return uint64(math.Floor(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold))
}

// IsExempt reports whether balance covers the rent-exemption floor for dataLen.
func (r Rent) IsExempt(balance uint64, dataLen int) bool {
	return balance >= r.MinimumBalance(dataLen)
}
