// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"context"

	"github.com/lib/pq"

	shardmigdb "github.com/shardmig/shardmig/pkg/db"
)

const digestFuncName = "mig_digest_const"

// LoadDigest reads this Dest's mig_digest_const() value, or "" if the
// function doesn't exist yet (a brand-new host).
func (d *Dest) LoadDigest(ctx context.Context) (string, error) {
	var digest string
	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		rows, err := rdb.QueryContext(ctx, "SELECT "+digestFuncName+"()")
		if err != nil {
			if isUndefinedFunction(err) {
				return nil
			}
			return err
		}
		defer rows.Close()
		return shardmigdb.ScanFirstValue(rows, &digest)
	})
	return digest, err
}

// SaveDigest (re)creates mig_digest_const() on this Dest to return value.
func (d *Dest) SaveDigest(ctx context.Context, value string) error {
	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		_, err := rdb.ExecContext(ctx, createConstFuncSQL(digestFuncName, value))
		return err
	})
	if err != nil {
		return PostFailure{Host: d.Host, Schema: d.Schema, What: digestFuncName, Err: err}
	}
	return nil
}

// LoadDigests reads the digest from every dest in sequence (callers that
// want concurrency fan out themselves); at least one read must succeed.
func LoadDigests(ctx context.Context, dests []*Dest) ([]string, error) {
	var digests []string
	var lastErr error

	for _, d := range dests {
		v, err := d.LoadDigest(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		digests = append(digests, v)
	}

	if len(digests) == 0 {
		return nil, DigestReadFailure{Attempts: len(dests), Last: lastErr}
	}
	return digests, nil
}

// SaveDigests writes value to every dest, tolerating partial failures;
// best-digest selection at read time recovers the correct fleet-wide view.
func SaveDigests(ctx context.Context, dests []*Dest, value string) {
	for _, d := range dests {
		_ = d.SaveDigest(ctx, value)
	}
}

func createConstFuncSQL(fn, value string) string {
	return "CREATE OR REPLACE FUNCTION " + fn + "() RETURNS text AS $shardmig$ SELECT " +
		pq.QuoteLiteral(value) + " $shardmig$ LANGUAGE sql IMMUTABLE;"
}

// isUndefinedFunction reports whether err is Postgres's "42883 undefined
// function" error, raised when mig_digest_const()/mig_rerun_fingerprint_const()
// hasn't been created on this Dest yet.
func isUndefinedFunction(err error) bool {
	pe, ok := err.(*pq.Error)
	return ok && pe.Code == "42883"
}
