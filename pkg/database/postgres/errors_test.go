package pg

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCheckNoRows(t *testing.T) {
	notFound := errors.New("not found")

	assert.Equal(t, notFound, CheckNoRows(sql.ErrNoRows, notFound))
	assert.Equal(t, notFound, CheckNoRows(errors.Wrap(sql.ErrNoRows, "get"), notFound))
	assert.NoError(t, CheckNoRows(nil, notFound))

	other := errors.New("other")
	assert.Equal(t, other, CheckNoRows(other, notFound))
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, IsSerializationFailure(errors.Wrap(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}, "save")))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsSerializationFailure(errors.New("boom")))
	assert.False(t, IsSerializationFailure(nil))
}

func TestExecuteRetryable(t *testing.T) {
	var calls int
	err := ExecuteRetryable(func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = ExecuteRetryable(func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})
	assert.True(t, IsSerializationFailure(err))
	assert.Equal(t, maxSerializationAttempts, calls)

	calls = 0
	boom := errors.New("boom")
	err = ExecuteRetryable(func() error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{User: "u", Password: "p", Host: "localhost", Port: 5432, DbName: "movswap"}
	assert.NoError(t, valid.Validate())

	iam := valid
	iam.Password = ""
	assert.Error(t, iam.Validate())
	iam.UseIamAuth = true
	assert.NoError(t, iam.Validate())

	for _, mutate := range []func(c *Config){
		func(c *Config) { c.User = "" },
		func(c *Config) { c.Host = "" },
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.DbName = "" },
	} {
		c := valid
		mutate(&c)
		assert.Error(t, c.Validate())
	}
}
