package db

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	all, err := loadMigrations(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, "001_create_plans", all[0].Version)
	assert.Contains(t, all[0].SQL, "CREATE TABLE")
}

func TestLoadMigrations_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.up.sql":   {Data: []byte("B")},
		"migrations/001_a.up.sql":   {Data: []byte("A")},
		"migrations/001_a.down.sql": {Data: []byte("drop")},
	}
	all, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "001_a", all[0].Version)
	assert.Equal(t, "002_b", all[1].Version)

	todo := pending(all, map[string]bool{"001_a": true})
	require.Len(t, todo, 1)
	assert.Equal(t, "002_b", todo[0].Version)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", 3, func() error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = withRetry(context.Background(), "test", 0, func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, "test", 5, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
