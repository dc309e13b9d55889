// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmig/shardmig/pkg/registry"
)

func TestWrapBodyPlainFileUsedAsIs(t *testing.T) {
	mf := registry.NewMigrationFile("up.sql", registry.Variables{}, registry.WrapNone, nil, "CREATE TABLE t (id int);")

	body, err := wrapBody(mf)

	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id int);", body)
}

func TestWrapBodySynthesizesAloneSandwich(t *testing.T) {
	mf := registry.NewMigrationFile(
		"/migrations/20240101000000.add_index.sh.up.sql",
		registry.Variables{RunAlone: true},
		registry.WrapIndexAlone,
		[]string{"idx_users_email"},
		`CREATE INDEX CONCURRENTLY IF NOT EXISTS "idx_users_email" ON users(email);`,
	)

	body, err := wrapBody(mf)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "COMMIT;\n"))
	assert.Contains(t, body, `DROP INDEX CONCURRENTLY IF EXISTS "idx_users_email";`)
	assert.Contains(t, body, "\\i /migrations/20240101000000.add_index.sh.up.sql")
	assert.True(t, strings.HasSuffix(body, "BEGIN;\n"))
}

func TestWrapBodySynthesizesAloneDropSandwich(t *testing.T) {
	mf := registry.NewMigrationFile(
		"/migrations/20240101000000.drop_index.sh.dn.sql",
		registry.Variables{},
		registry.WrapIndexAloneDrop,
		[]string{"idx_users_email"},
		`DROP INDEX CONCURRENTLY IF EXISTS "idx_users_email";`,
	)

	body, err := wrapBody(mf)

	require.NoError(t, err)
	assert.Equal(t, "COMMIT;\n\\i /migrations/20240101000000.drop_index.sh.dn.sql\nBEGIN;\n", body)
	assert.NotContains(t, body, "DROP INDEX CONCURRENTLY IF EXISTS")
}

func TestWrapBodyMixedFileUsedAsIs(t *testing.T) {
	raw := "COMMIT;\nDROP INDEX IF EXISTS x;\nCREATE INDEX CONCURRENTLY x ON t(c);\nBEGIN;"
	mf := registry.NewMigrationFile("f.sql", registry.Variables{RunAlone: true}, registry.WrapIndexMixed, []string{"x"}, raw)

	body, err := wrapBody(mf)

	require.NoError(t, err)
	assert.Equal(t, raw, body)
}

func TestVersionsFuncSQLEncodesVersionsAsJSON(t *testing.T) {
	stmt, err := versionsFuncSQL([]string{"20240101000000.init.sh", "20240102000000.add_users.sh"})
	require.NoError(t, err)

	assert.Contains(t, stmt, "mig_versions_const")
	assert.Contains(t, stmt, "RETURNS jsonb")

	// The JSON array, single-quoted for the SQL literal, must round trip.
	start := strings.Index(stmt, "SELECT '") + len("SELECT '")
	end := strings.Index(stmt, "'::jsonb")
	require.True(t, start > 0 && end > start)

	var decoded []string
	require.NoError(t, json.Unmarshal([]byte(stmt[start:end]), &decoded))
	assert.Equal(t, []string{"20240101000000.init.sh", "20240102000000.add_users.sh"}, decoded)
}
