package database

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersions(t *testing.T) {
	versions, err := migrationVersions()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_users.sql", "002_settings.sql", "003_audit_logs.sql"}, versions)

	for _, v := range versions {
		sql, err := migrationFiles.ReadFile(path.Join("migrations", v))
		require.NoError(t, err)
		assert.NotEmpty(t, sql, v)
	}
}
