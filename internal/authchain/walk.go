// SPDX-License-Identifier: Apache-2.0

package authchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/metadatastore"
	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/openlawlibrary/taf/internal/tufverify"
)

// ErrLVCUnreachable is returned when a supplied last validated commit is not
// an ancestor of the remote head: the local copy has diverged or the remote
// has been rewritten underneath it.
var ErrLVCUnreachable = errors.New("last validated commit is not reachable from remote head")

// ErrEmptyHistory is returned when remoteHead has no commits to walk at
// all, which should not happen for a real Git ref but is checked rather
// than assumed.
var ErrEmptyHistory = errors.New("authentication repository has no commits")

// Options configures Walk.
type Options struct {
	// PinnedFirstCommit, if set, must equal the authentication
	// repository's actual first commit or Walk fails with
	// tufverify.ErrOutOfBandMismatch.
	PinnedFirstCommit *gitinterface.Hash

	// LastValidatedCommit, if set, is the commit an earlier run last
	// advanced to. It must be an ancestor of remoteHead. Its state is
	// trusted without being re-verified; only commits after it are
	// chained through the Verifier.
	LastValidatedCommit *gitinterface.Hash
}

// Result is what Walk returns: the commit the caller should advance to, the
// sequence of commits that were actually authenticated this run (oldest
// first), and, on failure, which commit broke the chain and why.
type Result struct {
	LastGoodCommit       gitinterface.Hash
	AuthenticatedCommits []gitinterface.Hash
	FirstBadCommit       *gitinterface.Hash
	FirstBadErr          error
}

// Walk verifies repo's commit history on the branch that resolves to
// remoteHead, from either the repository's first commit (no LastValidated
// Commit) or the commit after it, up to remoteHead, stopping at the first
// commit whose transition from its predecessor doesn't verify. It never
// returns a Result past the last commit it could authenticate: on failure,
// LastGoodCommit is the parent of the first bad commit (or the supplied
// LastValidatedCommit, if the very first commit walked failed, or ZeroHash
// when no LastValidatedCommit was supplied and the first commit failed).
//
// Walk is cooperatively cancellable between commits: ctx is checked once
// per iteration of the walk, and no commit is left half-verified when a
// cancellation is observed.
func Walk(ctx context.Context, repo *gitinterface.Repository, remoteHead gitinterface.Hash, opts Options) (*Result, error) {
	fullHistory, err := repo.WalkLinear(remoteHead, gitinterface.ZeroHash)
	if err != nil {
		return nil, err
	}
	if len(fullHistory) == 0 {
		return nil, ErrEmptyHistory
	}

	firstCommit := fullHistory[0]
	if opts.PinnedFirstCommit != nil && *opts.PinnedFirstCommit != firstCommit {
		return nil, fmt.Errorf("%w: pinned %s, actual first commit %s", tufverify.ErrOutOfBandMismatch, opts.PinnedFirstCommit, firstCommit)
	}

	anchor := gitinterface.ZeroHash
	var anchorState *tuf.State
	lastGood := gitinterface.ZeroHash

	if opts.LastValidatedCommit != nil {
		reachable, err := repo.IsAncestor(*opts.LastValidatedCommit, remoteHead)
		if err != nil {
			return nil, err
		}
		if !reachable {
			return nil, fmt.Errorf("%w: %s", ErrLVCUnreachable, *opts.LastValidatedCommit)
		}

		anchor = *opts.LastValidatedCommit
		lastGood = anchor

		anchorReader, err := metadatastore.NewGitReader(repo, anchor)
		if err != nil {
			return nil, err
		}
		anchorState, _, err = loadState(anchorReader)
		if err != nil {
			return nil, err
		}
	}

	toWalk, err := repo.WalkLinear(remoteHead, anchor)
	if err != nil {
		return nil, err
	}

	result := &Result{LastGoodCommit: lastGood}
	state := anchorState

	for _, commit := range toWalk {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		reader, err := metadatastore.NewGitReader(repo, commit)
		if err != nil {
			result.FirstBadCommit = &commit
			result.FirstBadErr = err
			return result, nil
		}

		commitState, envelopes, err := loadState(reader)
		if err != nil {
			result.FirstBadCommit = &commit
			result.FirstBadErr = err
			return result, nil
		}

		if err := tufverify.VerifyTransition(ctx, state, commitState, envelopes, reader); err != nil {
			result.FirstBadCommit = &commit
			result.FirstBadErr = err
			return result, nil
		}

		state = commitState
		result.LastGoodCommit = commit
		result.AuthenticatedCommits = append(result.AuthenticatedCommits, commit)
	}

	return result, nil
}
