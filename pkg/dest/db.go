// SPDX-License-Identifier: Apache-2.0

package dest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	shardmigdb "github.com/shardmig/shardmig/pkg/db"
)

// metaConn opens a plain (non-runner) connection for metadata reads and
// bookkeeping writes: digest/fingerprint/version-list queries that are
// cheap single round trips, as opposed to script execution which goes
// through SqlRunner.
func (d *Dest) metaConn() (*sql.DB, error) {
	connStr, err := d.connString()
	if err != nil {
		return nil, err
	}
	return sql.Open("postgres", connStr)
}

func (d *Dest) withMeta(ctx context.Context, f func(db *shardmigdb.RDB) error) error {
	conn, err := d.metaConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	return f(&shardmigdb.RDB{DB: conn})
}

// CreateDB probes for the existence of d.Database on d's host and creates
// it if absent, retrying every second while the server is unreachable or
// still starting up, calling onRetry on each attempt.
func (d *Dest) CreateDB(ctx context.Context, onRetry func(attempt int, err error)) error {
	bootstrap := d.NoDB("postgres")

	attempt := 0
	for {
		attempt++
		err := bootstrap.tryCreateDB(ctx, d.Database)
		if err == nil {
			return nil
		}

		var connErr ConnectivityError
		if !errors.As(err, &connErr) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (d *Dest) tryCreateDB(ctx context.Context, dbName string) error {
	conn, err := d.metaConn()
	if err != nil {
		return ConnectivityError{Addr: d.Host, Reason: err.Error()}
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return ConnectivityError{Addr: d.Host, Reason: err.Error()}
	}

	rdb := &shardmigdb.RDB{DB: conn}

	var exists bool
	rows, err := rdb.QueryContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName)
	if err != nil {
		if isConnectivityErr(err) {
			return ConnectivityError{Addr: d.Host, Reason: err.Error()}
		}
		return err
	}
	err = shardmigdb.ScanFirstValue(rows, &exists)
	rows.Close()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = rdb.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	if err != nil {
		if isConnectivityErr(err) {
			return ConnectivityError{Addr: d.Host, Reason: err.Error()}
		}
		return err
	}
	return nil
}

// isConnectivityErr classifies whether err represents a transient "server
// not ready yet" condition rather than a terminal SQL error.
func isConnectivityErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Any error the server itself returned is terminal, not connectivity.
		return false
	}
	return err != nil
}
