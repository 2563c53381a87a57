package postgres

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"

	pgutil "github.com/code-payments/mov-swap/pkg/database/postgres"
)

const (
	accountTableName = "movswap__core_account"

	tableColumns = `id, address, owner, lamports, data, executable, updated_at`
)

type model struct {
	Id         sql.NullInt64 `db:"id"`
	Address    string        `db:"address"`
	Owner      string        `db:"owner"`
	Lamports   int64         `db:"lamports"`
	Data       []byte        `db:"data"`
	Executable bool          `db:"executable"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

func toModel(obj *accounts.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if obj.Lamports > math.MaxInt64 {
		return nil, errors.Wrapf(accounts.ErrInvalidAccount, "lamports exceed storable range: %d", obj.Lamports)
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &model{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   int64(obj.Lamports),
		Data:       data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt,
	}, nil
}

func fromModel(obj *model) *accounts.Record {
	return &accounts.Record{
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   uint64(obj.Lamports),
		Data:       obj.Data,
		Executable: obj.Executable,
		UpdatedAt:  obj.UpdatedAt.UTC(),
	}
}

func (m *model) dbSave(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + accountTableName + `
		(address, owner, lamports, data, executable, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address)
		DO UPDATE
			SET owner = $2, lamports = $3, data = $4, executable = $5, updated_at = $6
			WHERE ` + accountTableName + `.address = $1
		RETURNING
			` + tableColumns

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.Executable,
		m.UpdatedAt,
	).StructScan(m)

	return pgutil.CheckNoRows(err, accounts.ErrInvalidAccount)
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT ` + tableColumns + `
		FROM ` + accountTableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, accounts.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetMany(ctx context.Context, db *sqlx.DB, addresses ...string) ([]*model, error) {
	res := []*model{}
	if len(addresses) == 0 {
		return res, nil
	}

	query, args, err := sqlx.In(`SELECT `+tableColumns+`
		FROM `+accountTableName+`
		WHERE address IN (?)`, addresses)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil && !pgutil.IsNoRows(err) {
		return nil, err
	}
	return res, nil
}
