// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"context"
	"sort"

	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/registry"
)

// Plan builds the list of Chains to execute across every host, for either
// an apply run (undo == nil) or an undo run targeting the given version.
// At most one Chain is produced per (host, schema).
func Plan(ctx context.Context, hosts []*dest.Dest, reg *registry.Registry, undo *string) ([]*Chain, error) {
	var chains []*Chain

	for _, host := range hosts {
		schemas, err := host.LoadSchemas(ctx)
		if err != nil {
			return nil, err
		}

		persisted, err := host.LoadVersionsBySchema(ctx, schemas)
		if err != nil {
			return nil, err
		}

		for _, schema := range schemas {
			entries, err := reg.GroupBySchema(schema)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				continue
			}

			schemaDest := host.WithSchema(schema)

			var chain *Chain
			if undo == nil {
				chain, err = planUp(host.Host, host.Database, schema, schemaDest, entries, persisted[schema])
			} else {
				chain, err = planDn(host.Host, host.Database, schema, schemaDest, entries, persisted[schema], *undo)
			}
			if err != nil {
				return nil, err
			}
			if chain != nil {
				chains = append(chains, chain)
			}
		}
	}

	sort.Slice(chains, func(i, j int) bool {
		if chains[i].Host != chains[j].Host {
			return chains[i].Host < chains[j].Host
		}
		if chains[i].Database != chains[j].Database {
			return chains[i].Database < chains[j].Database
		}
		return chains[i].Schema < chains[j].Schema
	})

	return chains, nil
}

// planUp walks entries and persisted in lockstep: persisted must be an
// exact prefix of entries' names, else the schema has a timeline violation
// or versions applied with no matching on-disk entry.
func planUp(host, database, schema string, schemaDest *dest.Dest, entries []*registry.MigrationEntry, persisted []string) (*Chain, error) {
	for i, version := range persisted {
		if i >= len(entries) {
			return nil, MissingOnDiskError{Host: host, Schema: schema, Extra: persisted[i:]}
		}
		if entries[i].Name != version {
			return nil, TimelineViolation{Host: host, Schema: schema, Persisted: version, Expected: entries[i].Name}
		}
	}

	if len(persisted) == len(entries) {
		return nil, nil
	}

	chain := &Chain{Type: ChainUp, Host: host, Database: database, Schema: schema, Dest: schemaDest}
	running := append([]string{}, persisted...)
	for _, entry := range entries[len(persisted):] {
		running = append(running, entry.Name)
		chain.Migrations = append(chain.Migrations, Migration{
			Version:     entry.Name,
			File:        entry.Up,
			NewVersions: append([]string{}, running...),
		})
	}
	return chain, nil
}

// planDn permits undoing only the latest persisted version on a schema.
func planDn(host, database, schema string, schemaDest *dest.Dest, entries []*registry.MigrationEntry, persisted []string, undoVersion string) (*Chain, error) {
	if len(persisted) == 0 {
		return nil, nil
	}

	last := persisted[len(persisted)-1]
	if last == undoVersion {
		entry := findEntry(entries, undoVersion)
		if entry == nil {
			return nil, MissingOnDiskError{Host: host, Schema: schema, Extra: []string{undoVersion}}
		}
		return &Chain{
			Type:     ChainDn,
			Host:     host,
			Database: database,
			Schema:   schema,
			Dest:     schemaDest,
			Migrations: []Migration{{
				Version:     undoVersion,
				File:        entry.Dn,
				NewVersions: append([]string{}, persisted[:len(persisted)-1]...),
			}},
		}, nil
	}

	for _, v := range persisted[:len(persisted)-1] {
		if v == undoVersion {
			return nil, UndoInMiddleError{Host: host, Schema: schema, Version: undoVersion}
		}
	}

	return nil, nil
}

func findEntry(entries []*registry.MigrationEntry, name string) *registry.MigrationEntry {
	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}
