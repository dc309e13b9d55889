// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWrapIndexAloneSuccess(t *testing.T) {
	sql := `CREATE INDEX CONCURRENTLY IF NOT EXISTS "x""y" ON t(c) WHERE c='a;b';`
	vars := Variables{ParallelismPerHost: 2}

	kind, names, errs := validateWrap(sql, vars)

	require.Empty(t, errs)
	assert.Equal(t, WrapIndexAlone, kind)
	assert.Equal(t, []string{`x"y`}, names)
}

func TestValidateWrapIndexAloneDropSuccess(t *testing.T) {
	sql := `DROP INDEX CONCURRENTLY IF EXISTS "x";`

	kind, names, errs := validateWrap(sql, Variables{})

	require.Empty(t, errs)
	assert.Equal(t, WrapIndexAloneDrop, kind)
	assert.Equal(t, []string{"x"}, names)
}

func TestValidateWrapIndexAloneDropRequiresIfExists(t *testing.T) {
	sql := `DROP INDEX CONCURRENTLY "x";`

	kind, _, errs := validateWrap(sql, Variables{})

	require.NotEmpty(t, errs)
	assert.Equal(t, WrapNone, kind)
	assert.Contains(t, errs[0].Error(), `"IF EXISTS"`)
}

func TestValidateWrapIndexMixedFailure(t *testing.T) {
	sql := `SELECT 1; CREATE INDEX CONCURRENTLY "abc" ON tbl(col);`

	kind, _, errs := validateWrap(sql, Variables{})

	require.NotEmpty(t, errs)
	assert.Equal(t, WrapNone, kind)

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	joined := joinErrors(msgs)
	assert.Contains(t, joined, `(due to having "CREATE INDEX CONCURRENTLY"`)
	assert.Contains(t, joined, `start with "COMMIT;"`)
	assert.Contains(t, joined, `DROP INDEX IF EXISTS "abc";`)
	assert.Contains(t, joined, `end with "BEGIN;"`)
}

func TestValidateWrapIndexMixedSuccess(t *testing.T) {
	sql := "COMMIT;\nDROP INDEX IF EXISTS \"abc\";\nCREATE INDEX CONCURRENTLY \"abc\" ON tbl(col);\nBEGIN;"
	vars := Variables{RunAlone: true}

	kind, names, errs := validateWrap(sql, vars)

	require.Empty(t, errs)
	assert.Equal(t, WrapIndexMixed, kind)
	assert.Equal(t, []string{"abc"}, names)
}

func TestValidateWrapNoneForPlainSQL(t *testing.T) {
	kind, names, errs := validateWrap("CREATE TABLE t (id int);", Variables{})

	assert.Empty(t, errs)
	assert.Equal(t, WrapNone, kind)
	assert.Empty(t, names)
}
