// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/openlawlibrary/taf/internal/comparator"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/handler"
	"github.com/openlawlibrary/taf/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExcludedNoGlobsReturnsInput(t *testing.T) {
	names := []string{"acme/widgets", "acme/gadgets"}
	assert.Equal(t, names, filterExcluded(names, nil))
}

func TestFilterExcludedDropsMatches(t *testing.T) {
	names := []string{"acme/widgets", "acme/gadgets", "other/thing"}
	out := filterExcluded(names, []string{"acme/*"})
	assert.Equal(t, []string{"other/thing"}, out)
}

func TestSortedKeysIsLexical(t *testing.T) {
	m := map[string]metadata.RepositoryEntry{"z/z": {}, "a/a": {}, "m/m": {}}
	assert.Equal(t, []string{"a/a", "m/m", "z/z"}, sortedKeys(m))
}

func TestSanitizeReplacesSlashes(t *testing.T) {
	assert.Equal(t, "acme_widgets", sanitize("acme/widgets"))
}

func TestMaxConcurrentDefaultsToFour(t *testing.T) {
	assert.Equal(t, 4, maxConcurrent(Options{}))
	assert.Equal(t, 9, maxConcurrent(Options{MaxConcurrentFetch: 9}))
}

func TestLocalBranchHeadsNoRepoIsAllZero(t *testing.T) {
	heads := localBranchHeads(filepath.Join(t.TempDir(), "does-not-exist"), []string{gitinterface.BranchRefPrefix + "main"})
	assert.Equal(t, gitinterface.ZeroHash, heads["main"])
}

func TestLocalBranchHeadsReadsExistingRepo(t *testing.T) {
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), false)
	treeID, err := repo.EmptyTree()
	require.Nil(t, err)

	commitID := commitOnBranchForTest(t, repo, "main", nil, treeID)

	heads := localBranchHeads(filepath.Dir(repo.GetGitDir()), []string{gitinterface.BranchRefPrefix + "main", gitinterface.BranchRefPrefix + "other"})
	assert.Equal(t, commitID.String(), heads["main"].String())
	assert.Equal(t, gitinterface.ZeroHash, heads["other"])
}

func TestRecordBranchCommitsNilTargetIsZeroValue(t *testing.T) {
	event := recordBranchCommits(handler.TargetRepo{}, nil, comparator.BranchResult{TR: "acme/widgets", Branch: "main"})
	commits, ok := event.CommitsByBranch["main"]
	require.True(t, ok)
	assert.Equal(t, handler.BranchCommits{}, commits)
}

func TestRecordBranchCommitsFillsBeforeAfterNew(t *testing.T) {
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)
	treeID, err := repo.EmptyTree()
	require.Nil(t, err)

	first := commitOnBranchForTest(t, repo, "main", nil, treeID)
	second := commitOnBranchForTest(t, repo, "main", []gitinterface.Hash{first}, treeID)

	pt := &preparedTarget{
		repo:       repo,
		beforePull: map[string]gitinterface.Hash{"main": first},
	}

	event := recordBranchCommits(handler.TargetRepo{}, pt, comparator.BranchResult{TR: "acme/widgets", Branch: "main"})
	commits := event.CommitsByBranch["main"]
	assert.Equal(t, first.String(), commits.BeforePull)
	assert.Equal(t, second.String(), commits.AfterPull)
	assert.Equal(t, []string{second.String()}, commits.New)
}

func TestDispatchFailureSendsFailedEvent(t *testing.T) {
	sink := handler.NewNoopSink()
	opts := Options{Namespace: "acme", Name: "root"}
	require.Nil(t, dispatchFailure(sink, opts, ErrNoAuthRepoSource))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, handler.OutcomeFailed, events[0].Event)
	assert.Equal(t, "acme/root", events[0].AuthRepo.Name)
	assert.Contains(t, events[0].ErrorMsg, "no authentication repository URL")
}

func TestBuildEventReportsCommitRange(t *testing.T) {
	before := gitinterface.ZeroHash
	after, err := gitinterface.NewHash("1111111111111111111111111111111111111111")
	require.Nil(t, err)

	event := buildEvent(handler.OutcomeChanged, Options{Namespace: "acme", Name: "root"}, "/lib/acme/root",
		[]string{"https://example.com/acme/root.git"}, before, after, []gitinterface.Hash{after}, nil, "")

	assert.Equal(t, handler.OutcomeChanged, event.Event)
	assert.Equal(t, "acme/root", event.AuthRepo.Name)
	assert.Equal(t, before.String(), event.AuthRepo.Commits.BeforePull)
	assert.Equal(t, after.String(), event.AuthRepo.Commits.AfterPull)
	assert.Equal(t, []string{after.String()}, event.AuthRepo.Commits.New)
}

// commitOnBranchForTest mirrors comparator's test helper of the same shape:
// create a commit on branch with the given parents and tree, and point the
// branch ref at it.
func commitOnBranchForTest(t *testing.T, repo *gitinterface.Repository, branch string, parents []gitinterface.Hash, treeID gitinterface.Hash) gitinterface.Hash {
	t.Helper()

	args := []string{"--git-dir", repo.GetGitDir(), "commit-tree", "-m", "updater test commit", treeID.String()}
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
