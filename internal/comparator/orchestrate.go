// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"fmt"
	"sort"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// TargetRepo is one target repository entry to compare during a single
// authentication-repository validation run, already resolved to a working
// repository handle (fetched via FetchWithFallback or an existing working
// copy) by the caller.
type TargetRepo struct {
	// Name is the repositories.json key, and the path under targets/ that
	// CollectAuthorizedEntries reads commit records from.
	Name string
	Repo *gitinterface.Repository
	// Lenient mirrors repositories.json's allow-unauthenticated-commits
	// flag: true permits actual history to contain commits the
	// authentication repository never authorized, interleaved among the
	// authorized ones.
	Lenient bool
}

// BranchResult is one target repository's comparison outcome for a single
// branch.
type BranchResult struct {
	TR     string
	Branch string
	Result CompareResult
}

// Outcome is the result of comparing every target repository named in repos
// against the claims recorded across views, a single authentication
// repository's linear commit history.
type Outcome struct {
	Branches []BranchResult
	// LastCommonARCommit is the latest authentication-repository commit at
	// or before which every target repository's actual history matched its
	// authorized claims, per spec step 7. It is the minimum, across all
	// target repositories and branches, of each one's own last-valid AR
	// commit.
	LastCommonARCommit gitinterface.Hash
	HasLastCommon      bool
	// FirstFailure is the earliest-AR-commit failure across all target
	// repositories and branches; ties are broken by repos's order (the
	// repositories.json order the caller passed in), matching the
	// lowest-indexed-TR attribution rule.
	FirstFailure *BranchResult
}

// Compare walks target repositories in repos order (repositories.json
// order), and for each, every branch named in its authorized claims, in
// breadth-first fashion: the full outer loop is over repositories, not AR
// commits, because CompareSequence already resolves a TR+branch's verdict
// (and the AR commit it last held at) in one pass; the AR-commit-level
// breadth-first view spec step 6 describes falls out of comparing each
// result's attributed AR commit against the others afterward, rather than
// needing a literal AR-commit-by-AR-commit outer loop.
func Compare(views []ARCommitView, repos []TargetRepo) (*Outcome, error) {
	arIndex := make(map[string]int, len(views))
	for i, v := range views {
		arIndex[v.Commit.String()] = i
	}

	outcome := &Outcome{}
	// commonBound tracks the lowest index any branch result was valid up
	// to; -1 means "not valid anywhere, not even at the first AR commit".
	// The overall last-commonly-valid point is the minimum of all of
	// these, since every target repository must be simultaneously valid
	// at it.
	commonBound := len(views)
	sawAnyResult := false
	failureIdx := -1

	for _, tr := range repos {
		entries, err := CollectAuthorizedEntries(views, tr.Name)
		if err != nil {
			return nil, fmt.Errorf("collecting authorized entries for %s: %w", tr.Name, err)
		}

		sequences := ExpectedSequences(entries)
		branches := make([]string, 0, len(sequences))
		for branch := range sequences {
			branches = append(branches, branch)
		}
		sort.Strings(branches)

		for _, branch := range branches {
			expected := sequences[branch]

			actual, err := ActualSequence(tr.Repo, branch, gitinterface.ZeroHash)
			if err != nil {
				return nil, fmt.Errorf("reading actual history of %s branch %q: %w", tr.Name, branch, err)
			}

			actualCommits := make([]string, len(actual))
			for i, h := range actual {
				actualCommits[i] = h.String()
			}

			result := CompareSequence(expected, actualCommits, tr.Lenient)
			branchResult := BranchResult{TR: tr.Name, Branch: branch, Result: result}
			outcome.Branches = append(outcome.Branches, branchResult)
			sawAnyResult = true

			// Every target repository must be simultaneously valid for an
			// AR commit to count as commonly valid, so a branch with no
			// valid bound at all (failed before its first authorized
			// commit) drags the overall bound down to nothing.
			bound := -1
			if result.HasLastValid {
				if idx, ok := arIndex[result.LastValidARCommit.String()]; ok {
					bound = idx
				}
			}
			if bound < commonBound {
				commonBound = bound
			}

			if !result.OK {
				badIdx, ok := arIndex[result.FirstBadARCommit.String()]
				if !ok {
					badIdx = 0
				}
				if failureIdx == -1 || badIdx < failureIdx {
					failureIdx = badIdx
					captured := branchResult
					outcome.FirstFailure = &captured
				}
			}
		}
	}

	if sawAnyResult && commonBound >= 0 {
		outcome.LastCommonARCommit = views[commonBound].Commit
		outcome.HasLastCommon = true
	}

	return outcome, nil
}
