// SPDX-License-Identifier: Apache-2.0

// Package registry parses a directory of versioned raw-SQL migration
// scripts into an immutable, queryable set: the ordered list of entries,
// the schema-prefix routing table, and the digest used to answer
// "is this database at or beyond code version X".
package registry

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var fileNameRe = regexp.MustCompile(`^(\d+\.[^.]+)\.([^.]+)\.(up|dn)\.sql$`)

// Registry is the immutable, queryable result of parsing a migration
// directory. It is constructed once per run by NewRegistry and never
// mutated afterwards.
type Registry struct {
	// Entries is ordered lexicographically by Name, ascending.
	Entries []*MigrationEntry

	Before *MigrationFile
	After  *MigrationFile

	// prefixes is sorted by descending prefix length, so schema matching
	// always tries the longest candidate prefix first.
	prefixes []string
	byPrefix map[string][]*MigrationEntry
}

// NewRegistry lists dir, pairs up/dn files into MigrationEntries, groups
// them by schema-name prefix, and validates every file's non-transactional
// wrap. The returned Registry is safe for concurrent read access.
func NewRegistry(dir string) (*Registry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadError{Path: dir, Reason: err.Error()}
	}

	type halfPair struct {
		up, dn *MigrationFile
	}
	halves := map[string]*halfPair{} // base -> pair
	prefixOf := map[string]string{}  // base -> schema prefix
	var order []string                // base names, insertion order from dir listing

	var before, after *MigrationFile

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()

		switch name {
		case "before.sql":
			f, err := loadMigrationFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			before = f
			continue
		case "after.sql":
			f, err := loadMigrationFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			after = f
			continue
		}

		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return nil, LoadError{Path: name, Reason: "does not match <ts>.<title>.<prefix>.(up|dn).sql"}
		}

		base, prefix, half := m[1]+"."+m[2], m[2], m[3]

		f, err := loadMigrationFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		hp, ok := halves[base]
		if !ok {
			hp = &halfPair{}
			halves[base] = hp
			order = append(order, base)
			prefixOf[base] = prefix
		}
		if half == "up" {
			hp.up = f
		} else {
			hp.dn = f
		}
	}

	reg := &Registry{Before: before, After: after, byPrefix: map[string][]*MigrationEntry{}}

	for _, base := range order {
		hp := halves[base]
		prefix := prefixOf[base]
		if hp.up == nil {
			return nil, MissingPairError{Base: base, Want: "up"}
		}
		if hp.dn == nil {
			return nil, MissingPairError{Base: base, Want: "dn"}
		}
		entry := &MigrationEntry{
			Name:         base,
			SchemaPrefix: prefix,
			Up:           hp.up,
			Dn:           hp.dn,
		}
		reg.Entries = append(reg.Entries, entry)
		reg.byPrefix[prefix] = append(reg.byPrefix[prefix], entry)
	}

	sort.Slice(reg.Entries, func(i, j int) bool { return reg.Entries[i].Name < reg.Entries[j].Name })
	for prefix := range reg.byPrefix {
		entries := reg.byPrefix[prefix]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}

	reg.prefixes = make([]string, 0, len(reg.byPrefix))
	for prefix := range reg.byPrefix {
		reg.prefixes = append(reg.prefixes, prefix)
	}
	sort.Slice(reg.prefixes, func(i, j int) bool {
		if len(reg.prefixes[i]) != len(reg.prefixes[j]) {
			return len(reg.prefixes[i]) > len(reg.prefixes[j])
		}
		return reg.prefixes[i] < reg.prefixes[j]
	})

	return reg, nil
}

// GroupBySchema returns the ordered MigrationEntries applicable to schema,
// using longest-prefix-wins matching. It fails with
// PrefixAmbiguityError if a second, incomparable prefix also matches.
func (r *Registry) GroupBySchema(schema string) ([]*MigrationEntry, error) {
	var matched string
	var found bool

	for _, prefix := range r.prefixes {
		if !SchemaNameMatchesPrefix(schema, prefix) {
			continue
		}
		if !found {
			matched = prefix
			found = true
			continue
		}
		// A second match is fine if it's comparable with the first (one is
		// a prefix of the other); the longer one already won. Otherwise
		// it's an ambiguous, incomparable match.
		if strings.HasPrefix(matched, prefix) || strings.HasPrefix(prefix, matched) {
			continue
		}
		return nil, PrefixAmbiguityError{Schema: schema, First: matched, Second: prefix}
	}

	if !found {
		return nil, nil
	}
	return r.byPrefix[matched], nil
}

// Prefixes returns the schema-name prefixes known to the registry, longest
// first.
func (r *Registry) Prefixes() []string {
	out := make([]string, len(r.prefixes))
	copy(out, r.prefixes)
	return out
}
