// SPDX-License-Identifier: Apache-2.0

package registry

import "fmt"

// LoadError wraps a failure encountered while parsing the migration
// directory: an unreadable directory or file, a malformed filename, an
// invalid directive value, or a rejected non-transactional wrap. A missing
// up/dn pair and an unknown variable directive are reported by their own
// types, MissingPairError and UnknownVariableError.
type LoadError struct {
	Path   string
	Reason string
}

func (e LoadError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// MissingPairError is returned when a `.up.sql` file has no matching
// `.dn.sql` file, or vice versa.
type MissingPairError struct {
	Base string
	Want string
}

func (e MissingPairError) Error() string {
	return fmt.Sprintf("%s: missing %s file", e.Base, e.Want)
}

// UnknownVariableError is returned when a file contains a `-- $name=value`
// directive whose name is not recognized.
type UnknownVariableError struct {
	Path string
	Name string
}

func (e UnknownVariableError) Error() string {
	return fmt.Sprintf("%s: unknown migration variable %q", e.Path, e.Name)
}

// PrefixAmbiguityError is returned when two incomparable schema-name
// prefixes both match the same candidate schema.
type PrefixAmbiguityError struct {
	Schema string
	First  string
	Second string
}

func (e PrefixAmbiguityError) Error() string {
	return fmt.Sprintf("schema %q matches two incomparable prefixes: %q and %q", e.Schema, e.First, e.Second)
}

// WrapValidationError describes a single reason a migration file's
// CONCURRENTLY usage was rejected by the non-transactional wrap validator.
type WrapValidationError struct {
	Path   string
	Detail string
}

func (e WrapValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Detail)
}
