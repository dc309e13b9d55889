// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// directiveRe matches a `-- $name=value` line. Only a fixed set of names is
// recognized; anything else is an UnknownVariableError.
var directiveRe = regexp.MustCompile(`^--\s*(\$\w+)\s*=([^\r\n]+)$`)

// Variables holds the parsed `-- $name=value` directives for one migration
// file.
type Variables struct {
	DelayMillis         int64
	ParallelismGlobal   int64 // 0 means unlimited
	ParallelismPerHost  int64 // 0 means unlimited
	RunAlone            bool
}

const unlimitedParallelism = 0

// WrapKind classifies how a migration file's statements must be executed
// with respect to the engine's default per-script transaction.
type WrapKind int

const (
	// WrapNone means the file runs entirely inside the engine's default
	// transaction, no special handling required.
	WrapNone WrapKind = iota
	// WrapIndexAlone means the file's entire body is a single
	// CREATE INDEX CONCURRENTLY statement; the engine surrounds it with
	// COMMIT; DROP INDEX CONCURRENTLY IF EXISTS <name>; \i <file>; BEGIN;
	WrapIndexAlone
	// WrapIndexAloneDrop means the file's entire body is a single
	// DROP INDEX CONCURRENTLY IF EXISTS statement; the engine surrounds it
	// with only COMMIT; \i <file>; BEGIN; (no DROP to synthesize).
	WrapIndexAloneDrop
	// WrapIndexMixed means the file contains a CONCURRENTLY statement
	// alongside other SQL; the file itself must carry the COMMIT ... BEGIN
	// sandwich and the engine runs it as-is.
	WrapIndexMixed
)

// MigrationFile is one script on disk: either an up/dn half of a
// MigrationEntry, or the directory-wide before.sql/after.sql.
type MigrationFile struct {
	Path       string
	Vars       Variables
	Wrap       WrapKind
	IndexNames []string
	body       string
}

// Body returns the file's raw contents, read once at load time.
func (f *MigrationFile) Body() string { return f.body }

// NewMigrationFile builds a MigrationFile from already-known fields,
// bypassing disk I/O, for callers (such as tests) that synthesize a
// MigrationFile in memory.
func NewMigrationFile(path string, vars Variables, wrap WrapKind, indexNames []string, body string) *MigrationFile {
	return &MigrationFile{Path: path, Vars: vars, Wrap: wrap, IndexNames: indexNames, body: body}
}

func loadMigrationFile(path string) (*MigrationFile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadError{Path: path, Reason: err.Error()}
	}

	vars, err := parseVariables(path, string(contents))
	if err != nil {
		return nil, err
	}

	wrap, indexNames, wrapErrs := validateWrap(string(contents), vars)
	if len(wrapErrs) > 0 {
		msgs := make([]string, 0, len(wrapErrs))
		for _, e := range wrapErrs {
			msgs = append(msgs, e.Error())
		}
		return nil, LoadError{Path: path, Reason: joinErrors(msgs)}
	}

	return &MigrationFile{
		Path:       path,
		Vars:       vars,
		Wrap:       wrap,
		IndexNames: indexNames,
		body:       string(contents),
	}, nil
}

func parseVariables(path, contents string) (Variables, error) {
	var v Variables

	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		line := scanner.Text()
		m := directiveRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, value := m[1], m[2]

		switch name {
		case "$delay":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return v, LoadError{Path: path, Reason: "invalid $delay value: " + value}
			}
			v.DelayMillis = n
		case "$parallelism_global":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return v, LoadError{Path: path, Reason: "invalid $parallelism_global value: " + value}
			}
			v.ParallelismGlobal = n
		case "$parallelism_per_host":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return v, LoadError{Path: path, Reason: "invalid $parallelism_per_host value: " + value}
			}
			v.ParallelismPerHost = n
		case "$run_alone":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || (n != 0 && n != 1) {
				return v, LoadError{Path: path, Reason: "invalid $run_alone value: " + value}
			}
			v.RunAlone = n == 1
		default:
			return v, UnknownVariableError{Path: path, Name: name}
		}
	}
	if err := scanner.Err(); err != nil {
		return v, LoadError{Path: path, Reason: err.Error()}
	}

	return v, nil
}

// HasAnyParallelismDirective reports whether any of the three concurrency
// variables was set explicitly, a precondition for the index-alone wrap.
func (v Variables) HasAnyParallelismDirective() bool {
	return v.ParallelismGlobal != unlimitedParallelism ||
		v.ParallelismPerHost != unlimitedParallelism ||
		v.RunAlone
}
