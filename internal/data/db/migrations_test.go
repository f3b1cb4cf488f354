package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	t.Run("valid up", func(t *testing.T) {
		version, name, direction, err := parseFilename("0001_init.up.sql")
		require.NoError(t, err)
		assert.Equal(t, 1, version)
		assert.Equal(t, "init", name)
		assert.Equal(t, "up", direction)
	})

	t.Run("valid down", func(t *testing.T) {
		version, _, direction, err := parseFilename("0012_add_index.down.sql")
		require.NoError(t, err)
		assert.Equal(t, 12, version)
		assert.Equal(t, "down", direction)
	})

	t.Run("missing suffix", func(t *testing.T) {
		_, _, _, err := parseFilename("0001_init.sql")
		require.Error(t, err)
	})

	t.Run("missing name", func(t *testing.T) {
		_, _, _, err := parseFilename("0001_.up.sql")
		require.Error(t, err)
	})

	t.Run("non numeric version", func(t *testing.T) {
		_, _, _, err := parseFilename("abc_init.up.sql")
		require.Error(t, err)
	})
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions must be sequential from 1")
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestMigrateUpDown(t *testing.T) {
	database, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	ctx := context.Background()

	// migrateUp already ran in Open; the schema tables must exist
	var name string
	err = database.Conn().QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	require.NoError(t, err)

	// idempotent on a second pass
	require.NoError(t, migrateUp(ctx, database.Conn()))

	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NoError(t, MigrateDown(ctx, database.Conn(), len(migrations)))

	err = database.Conn().QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	require.Error(t, err)

	t.Run("down more than applied fails", func(t *testing.T) {
		err := MigrateDown(ctx, database.Conn(), len(migrations)+1)
		require.Error(t, err)
	})
}
