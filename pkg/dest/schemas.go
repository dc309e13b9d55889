// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	shardmigdb "github.com/shardmig/shardmig/pkg/db"
)

// versionBatchSize bounds how many schemas are queried per round trip when
// reading back applied version lists.
const versionBatchSize = 1000

// LoadSchemas returns the set of schema names on d's database suitable as
// shards: system schemas and any name containing an underscore are
// excluded.
func (d *Dest) LoadSchemas(ctx context.Context) ([]string, error) {
	var schemas []string
	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		rows, err := rdb.QueryContext(ctx, `
			SELECT schema_name FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
			  AND schema_name NOT LIKE 'pg_%'
			  AND schema_name NOT LIKE '%\_%' ESCAPE '\'
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			schemas = append(schemas, s)
		}
		return rows.Err()
	})
	return schemas, err
}

// LoadVersionsBySchema returns, for each of the given schemas, the applied
// version list reported by that schema's mig_versions_const() function.
// Schemas missing the function report an empty list. Reads are batched in
// groups of at most versionBatchSize via UNION ALL.
func (d *Dest) LoadVersionsBySchema(ctx context.Context, schemas []string) (map[string][]string, error) {
	result := make(map[string][]string, len(schemas))
	for _, s := range schemas {
		result[s] = nil
	}

	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		for start := 0; start < len(schemas); start += versionBatchSize {
			end := start + versionBatchSize
			if end > len(schemas) {
				end = len(schemas)
			}
			batch := schemas[start:end]

			// Each arm is guarded by to_regproc so a schema missing
			// mig_versions_const() reports NULL instead of erroring the whole
			// UNION ALL.
			selects := make([]string, 0, len(batch))
			for _, s := range batch {
				quoted := pq.QuoteIdentifier(s)
				selects = append(selects, fmt.Sprintf(
					`SELECT %s::text AS schema, CASE WHEN to_regproc('%s.mig_versions_const') IS NULL THEN NULL ELSE %s.mig_versions_const()::text END AS versions`,
					pq.QuoteLiteral(s), s, quoted,
				))
			}

			query := strings.Join(selects, " UNION ALL ")
			rows, err := rdb.QueryContext(ctx, query)
			if err != nil {
				return err
			}

			scanErr := func() error {
				defer rows.Close()
				for rows.Next() {
					var schema string
					var versionsJSON *string
					if err := rows.Scan(&schema, &versionsJSON); err != nil {
						return err
					}
					if versionsJSON == nil {
						result[schema] = nil
						continue
					}
					var versions []string
					if jsonErr := json.Unmarshal([]byte(*versionsJSON), &versions); jsonErr == nil {
						result[schema] = versions
					}
				}
				return rows.Err()
			}()
			if scanErr != nil {
				return scanErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
