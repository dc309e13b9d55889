// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lib/pq"

	"github.com/shardmig/shardmig/pkg/registry"
)

// versionsFuncName is created/replaced inside each migrated schema, never
// in the default schema.
const versionsFuncName = "mig_versions_const"

// discardSuite is run inside the same transaction as the script and the
// version-list update so a connection pooler sees a clean session
// afterwards. DISCARD ALL itself cannot run inside a transaction block, so
// the equivalent granular statements are used instead.
const discardSuite = `
CLOSE ALL;
UNLISTEN *;
SELECT pg_advisory_unlock_all();
DEALLOCATE ALL;
DISCARD PLANS;
DISCARD TEMP;
DISCARD SEQUENCES;
`

// RunFile applies one migration file to this Dest as a single atomic
// unit: open a transaction scoped to d.Schema, execute the script
// (tolerating its own COMMIT/BEGIN sandwich for CONCURRENTLY statements),
// (re)create mig_versions_const() if newVersions is non-nil, run the
// discard suite, and commit.
func (d *Dest) RunFile(ctx context.Context, mf *registry.MigrationFile, newVersions []string, onOut func(string)) (warned bool, err error) {
	runner, err := d.ensureRunner(ctx)
	if err != nil {
		return false, err
	}

	body, err := wrapBody(mf)
	if err != nil {
		return false, err
	}

	var sb strings.Builder
	sb.WriteString("SET statement_timeout = 0;\n")
	if d.Schema != "" {
		// Session-level, so it survives an index-alone file's own
		// COMMIT/BEGIN sandwich and still scopes the version-list update.
		fmt.Fprintf(&sb, "SET search_path = %s;\n", pq.QuoteIdentifier(d.Schema))
	}
	sb.WriteString("BEGIN;\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	if newVersions != nil {
		stmt, err := versionsFuncSQL(newVersions)
		if err != nil {
			return false, err
		}
		sb.WriteString(stmt)
		sb.WriteString("\n")
	}
	sb.WriteString(discardSuite)
	sb.WriteString("COMMIT;\n")

	warned, err = runner.Run(ctx, sb.String(), onOut)
	if err != nil {
		return warned, MigrationFailure{
			Host:    d.Host,
			Schema:  d.Schema,
			Version: filepath.Base(mf.Path),
			Output:  errOutput(err),
			Err:     err,
		}
	}
	return warned, nil
}

func errOutput(err error) string {
	var runErr RunError
	if errors.As(err, &runErr) {
		return runErr.Output
	}
	return ""
}

// wrapBody returns the literal SQL text to run for mf, synthesizing the
// COMMIT; DROP INDEX CONCURRENTLY IF EXISTS <name>; \i <file>; BEGIN;
// sandwich for the "alone" case; mixed and plain files already
// carry (or don't need) their own sandwich and are used as-is.
func wrapBody(mf *registry.MigrationFile) (string, error) {
	switch mf.Wrap {
	case registry.WrapIndexAlone:
		var sb strings.Builder
		sb.WriteString("COMMIT;\n")
		for _, name := range mf.IndexNames {
			fmt.Fprintf(&sb, "DROP INDEX CONCURRENTLY IF EXISTS %s;\n", pq.QuoteIdentifier(name))
		}
		fmt.Fprintf(&sb, "\\i %s\n", mf.Path)
		sb.WriteString("BEGIN;\n")
		return sb.String(), nil
	case registry.WrapIndexAloneDrop:
		var sb strings.Builder
		sb.WriteString("COMMIT;\n")
		fmt.Fprintf(&sb, "\\i %s\n", mf.Path)
		sb.WriteString("BEGIN;\n")
		return sb.String(), nil
	default:
		return mf.Body(), nil
	}
}

func versionsFuncSQL(versions []string) (string, error) {
	encoded, err := json.Marshal(versions)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE OR REPLACE FUNCTION %s() RETURNS jsonb AS $shardmig$ SELECT %s::jsonb $shardmig$ LANGUAGE sql IMMUTABLE;",
		versionsFuncName, pq.QuoteLiteral(string(encoded)),
	), nil
}
