// SPDX-License-Identifier: Apache-2.0

package dependency

import "errors"

// ErrPinConflict is raised when the dependency graph reaches the same full
// name more than once with different out-of-band pinned first commits.
var ErrPinConflict = errors.New("dependency re-entered with a conflicting pinned first commit")

// ErrCyclicDependency is raised when an AR's own dependency subtree
// recurses back into an ancestor that is still being resolved, which
// would otherwise recurse forever. A diamond (the same AR reached twice
// via two already-finished sibling paths) is not this error.
var ErrCyclicDependency = errors.New("dependency graph contains a cycle")
