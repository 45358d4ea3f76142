package persistence

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/roomswap?sslmode=disable",
		migrationURL("postgres://u:p@db:5432/roomswap?sslmode=disable"))
	assert.Equal(t, "pgx5://db/roomswap", migrationURL("postgresql://db/roomswap"))
	assert.Equal(t, "pgx5://already", migrationURL("pgx5://already"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFiles, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestRunMigrations_SkipsWithoutDSN(t *testing.T) {
	assert.NoError(t, RunMigrations("", MigrateUp, zap.NewNop()))
}
