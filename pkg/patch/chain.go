// SPDX-License-Identifier: Apache-2.0

// Package patch diffs on-disk Registry state against each schema's
// persisted applied-version history to produce the work chains the Grid
// executes.
package patch

import (
	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/registry"
)

// ChainType distinguishes an up-chain (applying forward) from a dn-chain
// (undoing the latest applied version).
type ChainType int

const (
	ChainUp ChainType = iota
	ChainDn
)

// Migration is one step of a Chain: the file to run and the exact version
// list to persist after it commits. NewVersions is nil for before/after
// scripts, which never touch the version list.
type Migration struct {
	Version     string
	File        *registry.MigrationFile
	NewVersions []string
}

// Chain is the ordered unit of work for one (host, database, schema)
// triple. Produced by Plan; never mutated afterwards.
type Chain struct {
	Type       ChainType
	Host       string
	Database   string
	Schema     string
	Dest       *dest.Dest
	Migrations []Migration
}
