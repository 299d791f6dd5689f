// SPDX-License-Identifier: Apache-2.0

package lvc

import (
	"fmt"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// TRAdvance is one target repository's working copy to fast-forward as
// part of advancing an AR to a newly validated commit.
type TRAdvance struct {
	Namespace string
	Name      string
	BareRepo  *gitinterface.Repository
	WorkDir   string
	// Commit is the last commit C5 accepted on the branch named by this
	// TR's target file at the AR's new commit.
	Commit gitinterface.Hash
}

// Advance performs the three steps spec.md §4.7 names, in the order it
// names them: (i) fast-forward the AR working copy to arCommit, (ii)
// fast-forward every TR working copy, (iii) write arCommit to the LVC
// file. The LVC write is last specifically so that an interrupted run
// never claims validation of targets that are not yet on disk.
func Advance(confDirRoot, arNamespace, arName string, arBareRepo *gitinterface.Repository, arWorkDir string, arCommit gitinterface.Hash, trs []TRAdvance) error {
	if _, err := gitinterface.EnsureWorkingCopy(arBareRepo, arWorkDir, arCommit); err != nil {
		return fmt.Errorf("advancing authentication repository working copy to %s: %w", arCommit, err)
	}

	for _, tr := range trs {
		if _, err := gitinterface.EnsureWorkingCopy(tr.BareRepo, tr.WorkDir, tr.Commit); err != nil {
			return fmt.Errorf("advancing target repository %s/%s to %s: %w", tr.Namespace, tr.Name, tr.Commit, err)
		}
	}

	if err := WriteAtomic(confDirRoot, arNamespace, arName, arCommit); err != nil {
		return fmt.Errorf("writing last validated commit: %w", err)
	}
	return nil
}
