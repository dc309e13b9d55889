// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	shardmigdb "github.com/shardmig/shardmig/pkg/db"
)

const fingerprintFuncName = "mig_rerun_fingerprint_const"

// BuildRerunFingerprint computes the comma-joined fingerprint of depFiles
// (the before.sql and after.sql paths) for the schemas on this Dest: the
// schema names, then "hash=<hexdigest of the dep files' contents>".
func (d *Dest) BuildRerunFingerprint(ctx context.Context, depFiles []string) (string, error) {
	schemas, err := d.LoadSchemas(ctx)
	if err != nil {
		return "", err
	}
	sort.Strings(schemas)

	h := sha256.New()
	for _, path := range depFiles {
		contents, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		h.Write(contents)
		h.Write([]byte{0})
	}

	parts := append([]string{}, schemas...)
	parts = append(parts, fmt.Sprintf("hash=%s", hex.EncodeToString(h.Sum(nil))))
	return strings.Join(parts, ","), nil
}

// LoadRerunFingerprint reads this Dest's mig_rerun_fingerprint_const()
// value, or "" if undefined.
func (d *Dest) LoadRerunFingerprint(ctx context.Context) (string, error) {
	var fp string
	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		rows, err := rdb.QueryContext(ctx, "SELECT "+fingerprintFuncName+"()")
		if err != nil {
			if isUndefinedFunction(err) {
				return nil
			}
			return err
		}
		defer rows.Close()
		return shardmigdb.ScanFirstValue(rows, &fp)
	})
	return fp, err
}

// SaveRerunFingerprint writes value (typically "" to force before/after to
// rerun on the next invocation) identically on every dest.
func SaveRerunFingerprint(ctx context.Context, dests []*Dest, value string) {
	for _, d := range dests {
		_ = d.saveFingerprint(ctx, value)
	}
}

// SaveBuiltRerunFingerprints marks every dest up-to-date by computing and
// saving each dest's own fingerprint from depFiles and its own schema set.
// The fingerprint is schema-set-dependent per Dest, so there is no single
// fleet-wide string to broadcast; each Dest must build its own.
func SaveBuiltRerunFingerprints(ctx context.Context, dests []*Dest, depFiles []string) {
	for _, d := range dests {
		fp, err := d.BuildRerunFingerprint(ctx, depFiles)
		if err != nil {
			continue
		}
		_ = d.saveFingerprint(ctx, fp)
	}
}

func (d *Dest) saveFingerprint(ctx context.Context, value string) error {
	err := d.withMeta(ctx, func(rdb *shardmigdb.RDB) error {
		_, err := rdb.ExecContext(ctx, createConstFuncSQL(fingerprintFuncName, value))
		return err
	})
	if err != nil {
		return PostFailure{Host: d.Host, Schema: d.Schema, What: fingerprintFuncName, Err: err}
	}
	return nil
}

// CheckRerunFingerprint reports whether every dest holds a non-empty
// fingerprint matching the one built from depFiles right now.
func CheckRerunFingerprint(ctx context.Context, dests []*Dest, depFiles []string) (bool, error) {
	for _, d := range dests {
		want, err := d.BuildRerunFingerprint(ctx, depFiles)
		if err != nil {
			return false, err
		}
		got, err := d.LoadRerunFingerprint(ctx)
		if err != nil {
			return false, err
		}
		if got == "" || got != want {
			return false, nil
		}
	}
	return true, nil
}
