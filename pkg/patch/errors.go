// SPDX-License-Identifier: Apache-2.0

package patch

import "fmt"

// TimelineViolation is returned when a schema's persisted version list
// diverges from the Registry's ordered entries for its prefix; the
// persisted list is no longer a prefix of the on-disk chain.
type TimelineViolation struct {
	Host      string
	Schema    string
	Persisted string
	Expected  string
}

func (e TimelineViolation) Error() string {
	return fmt.Sprintf("%s:%s: timeline violation: persisted version %q does not match expected %q",
		e.Host, e.Schema, e.Persisted, e.Expected)
}

// MissingOnDiskError is returned when a schema's persisted version list has
// applied more versions than the Registry currently knows about.
type MissingOnDiskError struct {
	Host   string
	Schema string
	Extra  []string
}

func (e MissingOnDiskError) Error() string {
	return fmt.Sprintf("%s:%s: %d persisted version(s) have no matching entry on disk: %v",
		e.Host, e.Schema, len(e.Extra), e.Extra)
}

// UndoInMiddleError is returned when the requested undo target is not the
// latest applied version on a schema.
type UndoInMiddleError struct {
	Host    string
	Schema  string
	Version string
}

func (e UndoInMiddleError) Error() string {
	return fmt.Sprintf("%s:%s: cannot undo %q, it is not the latest applied version", e.Host, e.Schema, e.Version)
}
