package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"

	pgutil "github.com/code-payments/mov-swap/pkg/database/postgres"
)

type store struct {
	db *sqlx.DB
}

// New returns a postgres backed accounts.Store.
func New(db *sql.DB) accounts.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements accounts.Store.Get
func (s *store) Get(ctx context.Context, address string) (*accounts.Record, error) {
	obj, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

// GetMany implements accounts.Store.GetMany
func (s *store) GetMany(ctx context.Context, addresses ...string) ([]*accounts.Record, error) {
	models, err := dbGetMany(ctx, s.db, addresses...)
	if err != nil {
		return nil, err
	}

	res := make([]*accounts.Record, len(models))
	for i, obj := range models {
		res[i] = fromModel(obj)
	}
	return res, nil
}

// Save implements accounts.Store.Save
func (s *store) Save(ctx context.Context, records ...*accounts.Record) error {
	now := time.Now().UTC()

	models := make([]*model, len(records))
	for i, record := range records {
		obj, err := toModel(record)
		if err != nil {
			return err
		}
		obj.UpdatedAt = now
		models[i] = obj
	}

	err := pgutil.ExecuteRetryable(func() error {
		return pgutil.ExecuteInTx(ctx, s.db, sql.LevelReadCommitted, func(tx *sqlx.Tx) error {
			for _, obj := range models {
				if err := obj.dbSave(ctx, tx); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	for i, obj := range models {
		fromModel(obj).CopyTo(records[i])
	}
	return nil
}
