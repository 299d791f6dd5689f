// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"os/exec"
	"testing"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitOnBranch(t *testing.T, repo *gitinterface.Repository, branch string, parents []gitinterface.Hash, treeID gitinterface.Hash) gitinterface.Hash {
	t.Helper()

	args := []string{"--git-dir", repo.GetGitDir(), "commit-tree", "-m", "comparator test commit", treeID.String()}
	for _, p := range parents {
		args = append(args, "-p", p.String())
	}
	cmd := exec.Command("git", args...)
	cmd.Env = append(cmd.Env, "GIT_AUTHOR_NAME=Jane Doe", "GIT_AUTHOR_EMAIL=jane.doe@example.com",
		"GIT_COMMITTER_NAME=Jane Doe", "GIT_COMMITTER_EMAIL=jane.doe@example.com")
	output, err := cmd.Output()
	require.Nil(t, err)

	commitID, err := gitinterface.NewHash(string(output[:40]))
	require.Nil(t, err)

	require.Nil(t, repo.SetReference(gitinterface.BranchRefPrefix+branch, commitID))
	return commitID
}

func emptyTreeID(t *testing.T, repo *gitinterface.Repository) gitinterface.Hash {
	t.Helper()
	treeID, err := repo.EmptyTree()
	require.Nil(t, err)
	return treeID
}

func TestActualSequenceFromRoot(t *testing.T) {
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)
	treeID := emptyTreeID(t, repo)

	first := commitOnBranch(t, repo, "main", nil, treeID)
	second := commitOnBranch(t, repo, "main", []gitinterface.Hash{first}, treeID)

	sequence, err := ActualSequence(repo, "main", gitinterface.ZeroHash)
	require.Nil(t, err)
	require.Len(t, sequence, 2)
	assert.Equal(t, first.String(), sequence[0].String())
	assert.Equal(t, second.String(), sequence[1].String())
}

func TestActualSequenceSince(t *testing.T) {
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)
	treeID := emptyTreeID(t, repo)

	first := commitOnBranch(t, repo, "main", nil, treeID)
	second := commitOnBranch(t, repo, "main", []gitinterface.Hash{first}, treeID)
	third := commitOnBranch(t, repo, "main", []gitinterface.Hash{second}, treeID)

	sequence, err := ActualSequence(repo, "main", first)
	require.Nil(t, err)
	require.Len(t, sequence, 2)
	assert.Equal(t, second.String(), sequence[0].String())
	assert.Equal(t, third.String(), sequence[1].String())
}

func TestActualSequenceDivergentHistory(t *testing.T) {
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)
	treeID := emptyTreeID(t, repo)

	mainHead := commitOnBranch(t, repo, "main", nil, treeID)
	orphan := commitOnBranch(t, repo, "orphan", nil, treeID)

	_, err := ActualSequence(repo, "main", orphan)
	assert.ErrorIs(t, err, ErrDivergentHistory)
	_ = mainHead
}
