package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"
)

func RunTests(t *testing.T, s accounts.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s accounts.Store){
		testRoundTrip,
		testUpdate,
		testGetMany,
		testSaveIsAtomic,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s accounts.Store) {
	ctx := context.Background()

	actual, err := s.Get(ctx, "test_address")
	assert.Equal(t, accounts.ErrAccountNotFound, err)
	assert.Nil(t, actual)

	expected := &accounts.Record{
		Address:    "test_address",
		Owner:      "test_owner",
		Lamports:   1234,
		Data:       []byte{1, 2, 3},
		Executable: true,
	}
	require.NoError(t, s.Save(ctx, expected))
	assert.False(t, expected.UpdatedAt.IsZero())

	actual, err = s.Get(ctx, "test_address")
	require.NoError(t, err)
	assertEquivalentRecords(t, expected, actual)

	// Mutating the returned record must not affect the store.
	actual.Data[0] = 9
	actual, err = s.Get(ctx, "test_address")
	require.NoError(t, err)
	assert.EqualValues(t, 1, actual.Data[0])
}

func testUpdate(t *testing.T, s accounts.Store) {
	ctx := context.Background()

	expected := &accounts.Record{
		Address:  "test_address",
		Owner:    "test_owner",
		Lamports: 1234,
		Data:     make([]byte, 73),
	}
	require.NoError(t, s.Save(ctx, expected))

	expected.Owner = "test_new_owner"
	expected.Lamports = 0
	expected.Data[0] = 1
	require.NoError(t, s.Save(ctx, expected))

	actual, err := s.Get(ctx, "test_address")
	require.NoError(t, err)
	assertEquivalentRecords(t, expected, actual)

	expected.Data = nil
	require.NoError(t, s.Save(ctx, expected))

	actual, err = s.Get(ctx, "test_address")
	require.NoError(t, err)
	assert.Empty(t, actual.Data)
}

func testGetMany(t *testing.T, s accounts.Store) {
	ctx := context.Background()

	var records []*accounts.Record
	for i := 0; i < 5; i++ {
		records = append(records, &accounts.Record{
			Address:  fmt.Sprintf("test_address_%d", i),
			Owner:    "test_owner",
			Lamports: uint64(i),
		})
	}
	require.NoError(t, s.Save(ctx, records...))

	actual, err := s.GetMany(ctx, "test_address_1", "test_address_missing", "test_address_3")
	require.NoError(t, err)
	require.Len(t, actual, 2)

	byAddress := make(map[string]*accounts.Record)
	for _, record := range actual {
		byAddress[record.Address] = record
	}
	assertEquivalentRecords(t, records[1], byAddress["test_address_1"])
	assertEquivalentRecords(t, records[3], byAddress["test_address_3"])

	actual, err = s.GetMany(ctx, "test_address_missing")
	require.NoError(t, err)
	assert.Empty(t, actual)
}

func testSaveIsAtomic(t *testing.T, s accounts.Store) {
	ctx := context.Background()

	valid := &accounts.Record{
		Address:  "test_address",
		Owner:    "test_owner",
		Lamports: 1,
	}
	invalid := &accounts.Record{
		Address: "test_address_invalid",
	}

	assert.Error(t, s.Save(ctx, valid, invalid))

	_, err := s.Get(ctx, "test_address")
	assert.Equal(t, accounts.ErrAccountNotFound, err)
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *accounts.Record) {
	require.NotNil(t, obj1)
	require.NotNil(t, obj2)

	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	if len(obj1.Data) == 0 {
		assert.Empty(t, obj2.Data)
	} else {
		assert.Equal(t, obj1.Data, obj2.Data)
	}
	assert.Equal(t, obj1.Executable, obj2.Executable)
	assert.Equal(t, obj1.UpdatedAt.Unix(), obj2.UpdatedAt.Unix())
}
