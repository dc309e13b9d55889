// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "errors"

// errMissingUndoVersion is returned by Run when Options.Action is
// ActionUndo but Options.Undo is empty; the caller is expected to have
// already canonicalized the version via registry.ExtractVersion.
var errMissingUndoVersion = errors.New("orchestrator: undo action requires Options.Undo")
