// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"fmt"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// ActualSequence returns the commits reachable on branch in repo, from
// since (exclusive; the zero hash means the repository root) up to the
// branch's current head, oldest first. This is the "actual sequence"
// spec.md §4.5 step 5 compares against the expected one.
func ActualSequence(repo *gitinterface.Repository, branch string, since gitinterface.Hash) ([]gitinterface.Hash, error) {
	ref, err := repo.AbsoluteReference(branch)
	if err != nil {
		return nil, fmt.Errorf("resolving branch %q: %w", branch, err)
	}

	head, err := repo.GetReference(ref)
	if err != nil {
		return nil, fmt.Errorf("reading head of branch %q: %w", branch, err)
	}

	if !since.IsZero() {
		isAncestor, err := repo.IsAncestor(since, head)
		if err != nil {
			return nil, fmt.Errorf("checking ancestry on branch %q: %w", branch, err)
		}
		if !isAncestor {
			return nil, fmt.Errorf("%w: %s is not an ancestor of %s on branch %q", ErrDivergentHistory, since, head, branch)
		}
	}

	return repo.WalkLinear(head, since)
}
