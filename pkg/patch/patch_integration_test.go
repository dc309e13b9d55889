// SPDX-License-Identifier: Apache-2.0

package patch_test

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmig/shardmig/internal/testutils"
	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/patch"
	"github.com/shardmig/shardmig/pkg/registry"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func writeMigration(t *testing.T, dir, base, up, dn string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".up.sql"), []byte(up), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, base+".dn.sql"), []byte(dn), 0o644))
}

func destFromConnStr(t *testing.T, connStr string) *dest.Dest {
	t.Helper()
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	user := u.User.Username()
	pass, _ := u.User.Password()
	runner, err := dest.NewPsqlRunner(connStr)
	require.NoError(t, err)

	return dest.New(u.Hostname(), u.Port(), user, pass, u.Path[1:], "", runner)
}

func TestPlanBuildsUpChainForFreshSchema(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20240101000000.init.sh", "CREATE TABLE widgets (id int);", "DROP TABLE widgets;")

	reg, err := registry.NewRegistry(dir)
	require.NoError(t, err)

	testutils.WithHostConnStrs(t, 1, func(connStrs []string) {
		ctx := context.Background()
		host := destFromConnStr(t, connStrs[0])

		conn, err := sql.Open("postgres", connStrs[0])
		require.NoError(t, err)
		defer conn.Close()
		_, err = conn.ExecContext(ctx, "CREATE SCHEMA sh0001")
		require.NoError(t, err)

		chains, err := patch.Plan(ctx, []*dest.Dest{host}, reg, nil)
		require.NoError(t, err)
		require.Len(t, chains, 1)
		assert.Equal(t, "sh0001", chains[0].Schema)
		require.Len(t, chains[0].Migrations, 1)
		assert.Equal(t, "20240101000000.init.sh", chains[0].Migrations[0].Version)
	})
}
