// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"strings"
)

// GetCommitMessage returns the commit's message.
func (r *Repository) GetCommitMessage(commitID Hash) (string, error) {
	if err := r.ensureIsCommit(commitID); err != nil {
		return "", err
	}

	commitMessage, err := r.executor("show", "-s", "--format=%B", commitID.String()).executeString()
	if err != nil {
		return "", fmt.Errorf("unable to identify message for commit '%s': %w", commitID.String(), err)
	}

	return commitMessage, nil
}

// GetCommitTreeID returns the commit's Git tree ID.
func (r *Repository) GetCommitTreeID(commitID Hash) (Hash, error) {
	if err := r.ensureIsCommit(commitID); err != nil {
		return ZeroHash, err
	}

	stdOut, err := r.executor("rev-parse", fmt.Sprintf("%s^{tree}", commitID.String())).executeString()
	if err != nil {
		return ZeroHash, fmt.Errorf("unable to identify tree for commit '%s': %w", commitID.String(), err)
	}

	hash, err := NewHash(stdOut)
	if err != nil {
		return ZeroHash, fmt.Errorf("invalid tree for commit ID '%s': %w", commitID, err)
	}
	return hash, nil
}

// GetCommitParentIDs returns the commit's parent commit IDs, in order. A root
// commit (one with no parents) returns an empty slice.
func (r *Repository) GetCommitParentIDs(commitID Hash) ([]Hash, error) {
	if err := r.ensureIsCommit(commitID); err != nil {
		return nil, err
	}

	stdOut, err := r.executor("rev-parse", fmt.Sprintf("%s^@", commitID.String())).executeString()
	if err != nil {
		return nil, fmt.Errorf("unable to identify parents for commit '%s': %w", commitID.String(), err)
	}

	commitIDSplit := strings.Split(stdOut, "\n")
	commitIDs := []Hash{}
	for _, parentID := range commitIDSplit {
		if parentID == "" {
			continue
		}

		hash, err := NewHash(parentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent commit ID '%s': %w", parentID, err)
		}

		commitIDs = append(commitIDs, hash)
	}

	return commitIDs, nil
}

// GetCommitAuthorIdentity returns the author name and email recorded against
// the commit, used by the comparator to surface attribution in Outcome
// records without trusting it for authentication purposes.
func (r *Repository) GetCommitAuthorIdentity(commitID Hash) (name, email string, err error) {
	if err := r.ensureIsCommit(commitID); err != nil {
		return "", "", err
	}

	stdOut, err := r.executor("show", "-s", "--format=%an%x00%ae", commitID.String()).executeString()
	if err != nil {
		return "", "", fmt.Errorf("unable to identify author for commit '%s': %w", commitID.String(), err)
	}

	parts := strings.SplitN(stdOut, "\x00", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected author format for commit '%s'", commitID.String())
	}

	return parts[0], parts[1], nil
}

// KnowsCommit returns true if `testCommitID` is a descendant of
// `ancestorCommitID`, i.e. there is a path in the commit graph from the
// former to the latter. This is the Git-level primitive the auth-chain
// walker uses to confirm an authentication repository commit supersedes the
// last validated commit.
func (r *Repository) KnowsCommit(testCommitID, ancestorCommitID Hash) (bool, error) {
	if err := r.ensureIsCommit(testCommitID); err != nil {
		return false, err
	}
	if err := r.ensureIsCommit(ancestorCommitID); err != nil {
		return false, err
	}

	_, err := r.executor("merge-base", "--is-ancestor", ancestorCommitID.String(), testCommitID.String()).executeString()
	return err == nil, nil
}

// GetCommonAncestor finds the best common ancestor commit for the two
// supplied commits.
func (r *Repository) GetCommonAncestor(commitAID, commitBID Hash) (Hash, error) {
	if err := r.ensureIsCommit(commitAID); err != nil {
		return ZeroHash, err
	}
	if err := r.ensureIsCommit(commitBID); err != nil {
		return ZeroHash, err
	}

	mergeBase, err := r.executor("merge-base", commitAID.String(), commitBID.String()).executeString()
	if err != nil {
		return ZeroHash, err
	}

	mergeBaseID, err := NewHash(mergeBase)
	if err != nil {
		return ZeroHash, fmt.Errorf("received invalid commit ID: %w", err)
	}
	return mergeBaseID, nil
}

// ensureIsCommit is a helper to check that the ID represents a Git commit
// object.
func (r *Repository) ensureIsCommit(commitID Hash) error {
	objType, err := r.executor("cat-file", "-t", commitID.String()).executeString()
	if err != nil {
		return fmt.Errorf("unable to inspect if object is commit: %w", err)
	} else if objType != "commit" {
		return fmt.Errorf("requested Git ID '%s' is not a commit object", commitID.String())
	}

	return nil
}
