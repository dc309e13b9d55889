// SPDX-License-Identifier: Apache-2.0

// Package dest implements the per-schema transactional application
// contract: a Dest identifies one (host, port, user, password,
// database, schema) endpoint and knows how to run a migration script
// against it as one atomic unit, alongside the bookkeeping reads/writes
// (digest, rerun fingerprint, version list) used by the Orchestrator.
package dest

import (
	"context"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/shardmig/shardmig/internal/connstr"
)

// Dest is cheap to clone; apart from ensureRunner attaching a runner
// lazily, its methods do not modify it. Metadata reads and bookkeeping
// writes open their own short-lived *sql.DB connection (see metaConn);
// migration scripts run through Runner.
type Dest struct {
	Host     string
	Port     string
	User     string
	Pass     string
	Database string
	Schema   string

	Runner SqlRunner
}

// New builds a Dest from explicit connection settings; runner executes its
// scripts (a nil runner is replaced by a PsqlRunner on first use).
func New(host, port, user, pass, database, schema string, runner SqlRunner) *Dest {
	return &Dest{
		Host:     host,
		Port:     port,
		User:     user,
		Pass:     pass,
		Database: database,
		Schema:   schema,
		Runner:   runner,
	}
}

// WithSchema returns a clone of d targeting a different schema on the same
// (host, database).
func (d *Dest) WithSchema(schema string) *Dest {
	clone := *d
	clone.Schema = schema
	return &clone
}

// NoDB returns a clone of d that connects to the bootstrap database instead
// of d.Database, used only by CreateDB to issue `CREATE DATABASE`.
func (d *Dest) NoDB(bootstrapDB string) *Dest {
	clone := *d
	clone.Database = bootstrapDB
	clone.Schema = ""
	return &clone
}

// String renders "host:database/schema" for log lines and error messages.
func (d *Dest) String() string {
	if d.Schema == "" {
		return fmt.Sprintf("%s:%s", d.Host, d.Database)
	}
	return fmt.Sprintf("%s:%s/%s", d.Host, d.Database, d.Schema)
}

// connString builds the postgres:// DSN for this Dest, with search_path set
// to Schema when one is set.
func (d *Dest) connString() (string, error) {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Pass != "" {
			u.User = url.UserPassword(d.User, d.Pass)
		} else {
			u.User = url.User(d.User)
		}
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()

	return connstr.AppendSearchPathOption(u.String(), d.Schema)
}

// ensureRunner lazily attaches a PsqlRunner bound to this Dest's connection
// string, used when a Dest is constructed without an explicit runner.
func (d *Dest) ensureRunner(ctx context.Context) (SqlRunner, error) {
	if d.Runner != nil {
		return d.Runner, nil
	}
	connStr, err := d.connString()
	if err != nil {
		return nil, err
	}
	r, err := NewPsqlRunner(connStr)
	if err != nil {
		return nil, err
	}
	d.Runner = r
	return r, nil
}
