// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"strings"
)

// WalkLinear returns the sequence of commits from newCommitID back to (but
// excluding) oldCommitID, ordered from oldest to newest, following first
// parents only. If oldCommitID is the zero hash, the walk proceeds all the
// way back to the repository's root commit. This is the Git Worker's
// linear-history primitive used by the auth-chain walker and the target
// comparator, both of which reason about authentication repository history
// as a line rather than a general DAG.
func (r *Repository) WalkLinear(newCommitID, oldCommitID Hash) ([]Hash, error) {
	if err := r.ensureIsCommit(newCommitID); err != nil {
		return nil, err
	}

	var rangeExpr string
	if oldCommitID.IsZero() {
		rangeExpr = newCommitID.String()
	} else {
		if err := r.ensureIsCommit(oldCommitID); err != nil {
			return nil, err
		}
		rangeExpr = fmt.Sprintf("%s..%s", oldCommitID.String(), newCommitID.String())
	}

	// --first-parent avoids walking into merged side branches; TAF treats
	// the authentication repository as an append-only line of history.
	// --reverse produces oldest-first ordering, which is the order
	// validation must be replayed in.
	stdOut, err := r.executor("rev-list", "--first-parent", "--reverse", rangeExpr).executeString()
	if err != nil {
		return nil, fmt.Errorf("unable to walk commit range %s: %w", rangeExpr, err)
	}

	if stdOut == "" {
		return nil, nil
	}

	lines := strings.Split(stdOut, "\n")
	commits := make([]Hash, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		hash, err := NewHash(line)
		if err != nil {
			return nil, fmt.Errorf("invalid commit ID in walk: %w", err)
		}
		commits = append(commits, hash)
	}

	return commits, nil
}

// IsAncestor is an alias for the ancestry check used by callers that only
// care about the boolean relationship, without the Git-commit-specific
// naming of KnowsCommit.
func (r *Repository) IsAncestor(ancestor, descendant Hash) (bool, error) {
	return r.KnowsCommit(descendant, ancestor)
}
