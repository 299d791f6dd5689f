// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"encoding/json"
	"fmt"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/metadata"
	"github.com/openlawlibrary/taf/internal/metadatastore"
)

// ARCommitView pairs one authenticated authentication-repository commit
// with the metadatastore.Reader bound to it, the unit authchain.Walk's
// result is expanded back into for the comparator to read target files
// from, in order.
type ARCommitView struct {
	Commit gitinterface.Hash
	Store  metadatastore.Reader
}

// AuthorizedEntry is one authorization record: the (branch, commit) an AR
// commit published for a target repository.
type AuthorizedEntry struct {
	ARCommit gitinterface.Hash
	Branch   string
	Commit   string
}

// CollectAuthorizedEntries reads targets/<trName> from every view in order,
// skipping commits at which that target file is absent (spec: TR entries
// without a corresponding target file at a given AR commit are ignored at
// that commit, not required-absent).
func CollectAuthorizedEntries(views []ARCommitView, trName string) ([]AuthorizedEntry, error) {
	path := trName
	entries := make([]AuthorizedEntry, 0, len(views))

	for _, view := range views {
		raw, err := view.Store.ReadTarget(path)
		if err != nil {
			if err == metadatastore.ErrNotFound {
				continue
			}
			return nil, fmt.Errorf("reading %s at %s: %w", path, view.Commit, err)
		}

		var commitFile metadata.TargetCommit
		if err := json.Unmarshal(raw, &commitFile); err != nil {
			return nil, fmt.Errorf("parsing %s at %s: %w", path, view.Commit, err)
		}

		entries = append(entries, AuthorizedEntry{ARCommit: view.Commit, Branch: commitFile.Branch, Commit: commitFile.Commit})
	}

	return entries, nil
}

// ExpectedCommit is one entry of a branch's expected sequence: an
// authorized commit and the (first) AR commit that introduced it, after
// collapsing consecutive repeats.
type ExpectedCommit struct {
	Commit   string
	ARCommit gitinterface.Hash
}

// ExpectedSequences groups entries by branch and, within each branch,
// deduplicates consecutive repeats: an AR commit that re-authorizes the
// same commit as its predecessor doesn't introduce a new expected entry.
func ExpectedSequences(entries []AuthorizedEntry) map[string][]ExpectedCommit {
	sequences := map[string][]ExpectedCommit{}

	for _, entry := range entries {
		seq := sequences[entry.Branch]
		if len(seq) > 0 && seq[len(seq)-1].Commit == entry.Commit {
			continue
		}
		sequences[entry.Branch] = append(seq, ExpectedCommit{Commit: entry.Commit, ARCommit: entry.ARCommit})
	}

	return sequences
}

// CompareResult is the outcome of comparing one branch's expected sequence
// against its actual one.
type CompareResult struct {
	// OK is true when every expected entry was satisfied.
	OK bool
	// LastValidARCommit is the AR commit up to (and including) which this
	// branch's comparison holds. Zero value if not even the first entry
	// matched.
	LastValidARCommit gitinterface.Hash
	HasLastValid      bool
	// FirstBadARCommit and Err are set when OK is false.
	FirstBadARCommit gitinterface.Hash
	Err              error
}

// CompareSequence implements spec.md §4.5 step 6: strict mode requires
// actual to equal expected exactly; lenient mode requires expected to be an
// order-preserving subsequence of actual, with extra actual commits
// tolerated anywhere.
func CompareSequence(expected []ExpectedCommit, actual []string, lenient bool) CompareResult {
	if lenient {
		return compareLenient(expected, actual)
	}
	return compareStrict(expected, actual)
}

func compareStrict(expected []ExpectedCommit, actual []string) CompareResult {
	if len(expected) != len(actual) {
		return mismatchAt(expected, min(len(expected), len(actual)))
	}
	for i, e := range expected {
		if e.Commit != actual[i] {
			return mismatchAt(expected, i)
		}
	}
	return okResult(expected)
}

func mismatchAt(expected []ExpectedCommit, badIndex int) CompareResult {
	result := CompareResult{OK: false, Err: fmt.Errorf("%w: diverges at expected position %d", ErrTargetMismatch, badIndex)}
	if badIndex < len(expected) {
		result.FirstBadARCommit = expected[badIndex].ARCommit
	}
	if badIndex > 0 {
		result.LastValidARCommit = expected[badIndex-1].ARCommit
		result.HasLastValid = true
	}
	return result
}

func okResult(expected []ExpectedCommit) CompareResult {
	result := CompareResult{OK: true}
	if len(expected) > 0 {
		result.LastValidARCommit = expected[len(expected)-1].ARCommit
		result.HasLastValid = true
	}
	return result
}

func compareLenient(expected []ExpectedCommit, actual []string) CompareResult {
	result := CompareResult{OK: true}

	cursor := 0
	for i, e := range expected {
		found := -1
		for j := cursor; j < len(actual); j++ {
			if actual[j] == e.Commit {
				found = j
				break
			}
		}
		if found == -1 {
			return CompareResult{
				OK:               false,
				Err:              fmt.Errorf("%w: %s never appears in the target repository's actual history", ErrMissingAuthorizedCommit, e.Commit),
				FirstBadARCommit: e.ARCommit,
				LastValidARCommit: func() gitinterface.Hash {
					if i == 0 {
						return gitinterface.Hash{}
					}
					return expected[i-1].ARCommit
				}(),
				HasLastValid: i > 0,
			}
		}

		cursor = found + 1
		result.LastValidARCommit = e.ARCommit
		result.HasLastValid = true
	}

	return result
}
