package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAccount  = errors.New("invalid account")
)

type Record struct {
	Address string
	Owner   string

	Lamports   uint64
	Data       []byte
	Executable bool

	UpdatedAt time.Time
}

type Store interface {
	// Get returns the account at the address.
	//
	// Returns ErrAccountNotFound if the account does not exist.
	Get(ctx context.Context, address string) (*Record, error)

	// GetMany returns the accounts that exist among the addresses. Missing
	// accounts are omitted from the result.
	GetMany(ctx context.Context, addresses ...string) ([]*Record, error)

	// Save creates or updates all records in a single atomic operation.
	Save(ctx context.Context, records ...*Record) error
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)

	return Record{
		Address:    r.Address,
		Owner:      r.Owner,
		Lamports:   r.Lamports,
		Data:       data,
		Executable: r.Executable,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = make([]byte, len(r.Data))
	copy(dst.Data, r.Data)
	dst.Executable = r.Executable
	dst.UpdatedAt = r.UpdatedAt
}
