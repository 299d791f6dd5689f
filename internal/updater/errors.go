// SPDX-License-Identifier: Apache-2.0

package updater

import "errors"

// Local-state class errors this package owns. The remaining taxonomy
// classes from spec.md §7 are owned by the packages that detect them:
// Network (comparator.ErrFetchError), Authentication (tufverify's Err*),
// Target chain (comparator's Err*), Dependency graph
// (dependency.ErrCyclicDependency, dependency.ErrPinConflict),
// Local-state LVCUnreachable (authchain.ErrLVCUnreachable) and
// DivergentHistory (comparator.ErrDivergentHistory).
var (
	// ErrWorkingTreeDirty is raised when a local working copy has
	// uncommitted modifications and the caller did not request forced
	// mode (which resets it to the LVC instead).
	ErrWorkingTreeDirty = errors.New("local working copy has uncommitted modifications")

	// ErrNoAuthRepoSource is raised when neither a mirror list nor a
	// single authentication repository URL was supplied.
	ErrNoAuthRepoSource = errors.New("no authentication repository URL or mirror list supplied")
)
