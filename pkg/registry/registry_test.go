// SPDX-License-Identifier: Apache-2.0

package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmig/shardmig/pkg/registry"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestNewRegistryPairsAndOrdersEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240102000000.add_users.sh.up.sql", "CREATE TABLE users (id int);")
	writeFile(t, dir, "20240102000000.add_users.sh.dn.sql", "DROP TABLE users;")
	writeFile(t, dir, "20240101000000.init.sh.up.sql", "SELECT 1;")
	writeFile(t, dir, "20240101000000.init.sh.dn.sql", "SELECT 1;")
	writeFile(t, dir, "before.sql", "SELECT 'before';")
	writeFile(t, dir, "after.sql", "SELECT 'after';")

	reg, err := registry.NewRegistry(dir)
	require.NoError(t, err)

	require.Len(t, reg.Entries, 2)
	assert.Equal(t, "20240101000000.init.sh", reg.Entries[0].Name)
	assert.Equal(t, "20240102000000.add_users.sh", reg.Entries[1].Name)
	assert.NotNil(t, reg.Before)
	assert.NotNil(t, reg.After)
}

func TestNewRegistryRejectsMissingPair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240101000000.init.sh.up.sql", "SELECT 1;")

	_, err := registry.NewRegistry(dir)
	require.Error(t, err)
	assert.IsType(t, registry.MissingPairError{}, err)
}

func TestNewRegistryRejectsUnknownVariable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240101000000.init.sh.up.sql", "-- $bogus=1\nSELECT 1;")
	writeFile(t, dir, "20240101000000.init.sh.dn.sql", "SELECT 1;")

	_, err := registry.NewRegistry(dir)
	require.Error(t, err)
}

func TestGroupBySchemaLongestPrefixWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240101000000.a.sh.up.sql", "SELECT 1;")
	writeFile(t, dir, "20240101000000.a.sh.dn.sql", "SELECT 1;")
	writeFile(t, dir, "20240102000000.b.sh0001.up.sql", "SELECT 1;")
	writeFile(t, dir, "20240102000000.b.sh0001.dn.sql", "SELECT 1;")

	reg, err := registry.NewRegistry(dir)
	require.NoError(t, err)

	entries, err := reg.GroupBySchema("sh0001old")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sh0001", entries[0].SchemaPrefix)
}

func TestGroupBySchemaDistinctPrefixesDontCollide(t *testing.T) {
	// Any two prefixes that both literally match the same schema name are
	// necessarily nested (one is a prefix of the other), so unrelated
	// prefixes for different shard families never collide on a given
	// schema. PrefixAmbiguityError therefore only fires on malformed
	// directories; it is exercised directly as a value in errors_test.go.
	dir := t.TempDir()
	writeFile(t, dir, "20240101000000.a.sh0001.up.sql", "SELECT 1;")
	writeFile(t, dir, "20240101000000.a.sh0001.dn.sql", "SELECT 1;")
	writeFile(t, dir, "20240101000000.b.sh0002.up.sql", "SELECT 1;")
	writeFile(t, dir, "20240101000000.b.sh0002.dn.sql", "SELECT 1;")

	reg, err := registry.NewRegistry(dir)
	require.NoError(t, err)

	entries, err := reg.GroupBySchema("sh0001")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = reg.GroupBySchema("sh0003")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
