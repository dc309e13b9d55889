// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	pgq "github.com/xataio/pg_query_go/v6"
)

// concurrentIndex describes one CREATE/DROP INDEX CONCURRENTLY statement
// found while scanning a migration file.
type concurrentIndex struct {
	name                string
	isCreate            bool
	ifExistsOrNotExists bool
}

// validateWrap classifies a migration file's use of CREATE/DROP INDEX
// CONCURRENTLY and, for the "mixed" case, enforces the COMMIT ... BEGIN
// sandwich and the parallelism-directive requirement.
//
// The real Postgres grammar (via pg_query_go) is used to find the
// CONCURRENTLY statements, rather than a regex over the SQL text, so that
// comments and string literals never produce false matches.
func validateWrap(contents string, vars Variables) (WrapKind, []string, []error) {
	stripped := stripLeadingNoise(contents)

	tree, err := pgq.Parse(contents)
	if err != nil {
		// A file that doesn't parse as SQL at all is not our concern here;
		// the database will reject it at execution time. Nothing to wrap.
		return WrapNone, nil, nil
	}

	var indexes []concurrentIndex
	for _, raw := range tree.GetStmts() {
		node := raw.GetStmt().GetNode()
		switch n := node.(type) {
		case *pgq.Node_IndexStmt:
			if n.IndexStmt.GetConcurrent() {
				indexes = append(indexes, concurrentIndex{
					name:                n.IndexStmt.GetIdxname(),
					isCreate:            true,
					ifExistsOrNotExists: n.IndexStmt.GetIfNotExists(),
				})
			}
		case *pgq.Node_DropStmt:
			if n.DropStmt.GetRemoveType() == pgq.ObjectType_OBJECT_INDEX && n.DropStmt.GetConcurrent() {
				indexes = append(indexes, concurrentIndex{
					name:                dropIndexName(n.DropStmt),
					isCreate:            false,
					ifExistsOrNotExists: n.DropStmt.GetMissingOk(),
				})
			}
		}
	}

	if len(indexes) == 0 {
		return WrapNone, nil, nil
	}

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.name)
	}

	alone := len(tree.GetStmts()) == 1

	if alone {
		idx := indexes[0]
		if idx.isCreate {
			if !vars.HasAnyParallelismDirective() {
				return WrapNone, names, []error{WrapValidationError{
					Detail: `(due to having "CREATE INDEX CONCURRENTLY") at least one of $parallelism_per_host, $parallelism_global, $run_alone must be set`,
				}}
			}
			return WrapIndexAlone, names, nil
		}

		// DROP INDEX CONCURRENTLY, alone: requires IF EXISTS.
		if !idx.ifExistsOrNotExists {
			return WrapNone, names, []error{WrapValidationError{
				Detail: `(due to having "DROP INDEX CONCURRENTLY") must use "IF EXISTS"`,
			}}
		}
		return WrapIndexAloneDrop, names, nil
	}

	// Mixed: enforce the COMMIT ... BEGIN sandwich.
	var errs []error
	if !vars.HasAnyParallelismDirective() {
		errs = append(errs, WrapValidationError{
			Detail: `(due to having "CREATE INDEX CONCURRENTLY" or "DROP INDEX CONCURRENTLY") at least one of $parallelism_per_host, $parallelism_global, $run_alone must be set`,
		})
	}
	if !strings.HasPrefix(stripped, "COMMIT;") {
		errs = append(errs, WrapValidationError{
			Detail: `file must start with "COMMIT;" when it contains a CONCURRENTLY statement alongside other SQL`,
		})
	}
	if !strings.HasSuffix(strings.TrimSpace(stripped), `BEGIN;`) {
		errs = append(errs, WrapValidationError{
			Detail: `file must end with "BEGIN;" so the engine's wrapping transaction can reopen`,
		})
	}
	for _, idx := range indexes {
		if !idx.isCreate {
			continue
		}
		dropStmt := fmt.Sprintf("DROP INDEX IF EXISTS %s;", pq.QuoteIdentifier(idx.name))
		if !strings.Contains(contents, dropStmt) {
			errs = append(errs, WrapValidationError{
				Detail: fmt.Sprintf(`must contain %s before the CREATE INDEX CONCURRENTLY statement for %s`, dropStmt, pq.QuoteIdentifier(idx.name)),
			})
		}
	}

	if len(errs) > 0 {
		return WrapNone, names, errs
	}
	return WrapIndexMixed, names, nil
}

func dropIndexName(stmt *pgq.DropStmt) string {
	objects := stmt.GetObjects()
	if len(objects) == 0 {
		return ""
	}
	items := objects[0].GetList().GetItems()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.GetString_().GetSval()
	}
	return strings.Join(parts, ".")
}

var leadingCommentOrSemicolonRe = regexp.MustCompile(`^(\s*(--[^\n]*\n|/\*.*?\*/|;)+)`)

// stripLeadingNoise removes leading comments and empty statements so that
// the COMMIT;/BEGIN; sandwich check only looks at real SQL.
func stripLeadingNoise(contents string) string {
	return strings.TrimSpace(leadingCommentOrSemicolonRe.ReplaceAllString(strings.TrimSpace(contents), ""))
}

func joinErrors(msgs []string) string {
	return strings.Join(msgs, "; ")
}
