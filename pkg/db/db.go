// SPDX-License-Identifier: Apache-2.0

// Package db wraps *sql.DB with retry-on-lock_timeout semantics for the
// bookkeeping statements (digest, rerun fingerprint, version-list reads)
// that compete with in-flight migration scripts for catalog locks.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
)

const (
	lockNotAvailableErrorCode pq.ErrorCode = "55P03"
	maxBackoffDuration                     = 1 * time.Minute
	backoffInterval                        = 1 * time.Second
)

// RDB wraps a *sql.DB and retries statements using an exponential backoff
// (with jitter) on lock_timeout errors. A CREATE OR REPLACE FUNCTION on a
// bookkeeping function can hit a lock_timeout while a migration holds the
// schema busy; backing off and retrying is always safe because every
// bookkeeping write is idempotent.
type RDB struct {
	DB *sql.DB
}

// ExecContext wraps sql.DB.ExecContext, retrying on lock_timeout errors.
func (db *RDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var res sql.Result
	err := db.withLockRetries(ctx, func() error {
		var err error
		res, err = db.DB.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// QueryContext wraps sql.DB.QueryContext, retrying on lock_timeout errors.
func (db *RDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	err := db.withLockRetries(ctx, func() error {
		var err error
		rows, err = db.DB.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

func (db *RDB) withLockRetries(ctx context.Context, f func() error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		err := f()
		if err == nil {
			return nil
		}

		pqErr := &pq.Error{}
		if errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return err
			}
			continue
		}

		return err
	}
}

func (db *RDB) Close() error {
	return db.DB.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first value of the first row, for the
// single-row single-column results the bookkeeping functions return.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}
