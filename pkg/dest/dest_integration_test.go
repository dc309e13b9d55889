// SPDX-License-Identifier: Apache-2.0

package dest_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmig/shardmig/internal/testutils"
	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/registry"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func destFromConnStr(t *testing.T, connStr, schema string) *dest.Dest {
	t.Helper()
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	user := u.User.Username()
	pass, _ := u.User.Password()

	runner, err := dest.NewPsqlRunner(connStr)
	require.NoError(t, err)

	return dest.New(u.Hostname(), u.Port(), user, pass, u.Path[1:], schema, runner)
}

func TestRunFileCommitsVersionsAndRollsBackOnFailure(t *testing.T) {
	testutils.WithHostConnStrs(t, 1, func(connStrs []string) {
		ctx := context.Background()
		d := destFromConnStr(t, connStrs[0], "public")

		ok := registry.NewMigrationFile("ok.up.sql", registry.Variables{}, registry.WrapNone, nil,
			"CREATE TABLE widgets (id int);")
		_, err := d.RunFile(ctx, ok, []string{"20240101000000.init.sh"}, nil)
		require.NoError(t, err)

		got, err := d.LoadVersionsBySchema(ctx, []string{"public"})
		require.NoError(t, err)
		assert.Equal(t, []string{"20240101000000.init.sh"}, got["public"])

		bad := registry.NewMigrationFile("bad.up.sql", registry.Variables{}, registry.WrapNone, nil,
			"CREATE TABLE widgets (id int);") // duplicate table -> fails
		_, err = d.RunFile(ctx, bad, []string{"20240101000000.init.sh", "20240102000000.dup.sh"}, nil)
		require.Error(t, err)

		got, err = d.LoadVersionsBySchema(ctx, []string{"public"})
		require.NoError(t, err)
		assert.Equal(t, []string{"20240101000000.init.sh"}, got["public"], "failed script must not move the version list forward")
	})
}

func TestDigestRoundTrip(t *testing.T) {
	testutils.WithHostConnStrs(t, 1, func(connStrs []string) {
		ctx := context.Background()
		d := destFromConnStr(t, connStrs[0], "public")

		empty, err := d.LoadDigest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", empty)

		require.NoError(t, d.SaveDigest(ctx, "3.deadbeef"))

		got, err := d.LoadDigest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "3.deadbeef", got)
	})
}

func TestRerunFingerprintRoundTrip(t *testing.T) {
	testutils.WithHostConnStrs(t, 1, func(connStrs []string) {
		ctx := context.Background()
		d := destFromConnStr(t, connStrs[0], "public")

		empty, err := d.LoadRerunFingerprint(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", empty)

		dest.SaveRerunFingerprint(ctx, []*dest.Dest{d}, "up-to-date")

		got, err := d.LoadRerunFingerprint(ctx)
		require.NoError(t, err)
		assert.Equal(t, "up-to-date", got)
	})
}

func TestCreateDBCreatesMissingDatabase(t *testing.T) {
	testutils.WithHostConnStrs(t, 1, func(connStrs []string) {
		ctx := context.Background()
		d := destFromConnStr(t, connStrs[0], "public")
		d.Database = "shardmig_new_db"

		var retries int
		err := d.CreateDB(ctx, func(attempt int, err error) { retries++ })
		require.NoError(t, err)
	})
}
