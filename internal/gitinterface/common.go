// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	testName  = "Jane Doe"
	testEmail = "jane.doe@example.com"
)

var testClock = clockwork.NewFakeClockAt(time.Date(1995, time.October, 26, 9, 0, 0, 0, time.UTC))

// CreateTestGitRepository creates a Git repository in the specified
// directory for use by tests across packages that need a real repository to
// shell out against. Commits created against the returned Repository are
// unsigned; TAF's own test fixtures attach signatures out of band using key
// files generated with ssh-keygen at test time.
func CreateTestGitRepository(t *testing.T, dir string, bare bool) *Repository {
	t.Helper()

	var gitDirPath string
	args := []string{"init"}
	if bare {
		args = append(args, "--bare")
		gitDirPath = dir
	} else {
		gitDirPath = filepath.Join(dir, ".git")
	}
	args = append(args, "-b", "main", dir)

	cmd := exec.Command(binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("unable to init test repository: %v\n%s", err, output)
	}

	repo := &Repository{gitDirPath: gitDirPath, clock: testClock}

	if err := repo.executor("config", "user.name", testName).executeAndDiscard(); err != nil {
		t.Fatal(err)
	}
	if err := repo.executor("config", "user.email", testEmail).executeAndDiscard(); err != nil {
		t.Fatal(err)
	}

	return repo
}

// executeAndDiscard is a small test convenience wrapper that surfaces the
// error from executeString while discarding the (uninteresting) output.
func (e *executor) executeAndDiscard() error {
	_, err := e.executeString()
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// commitWithParents creates a new commit in the repo without updating any
// reference. It's a test-only helper used to construct specific commit
// graphs (merges, forks, orphans) for auth-chain walker and comparator
// tests.
func (r *Repository) commitWithParents(t *testing.T, treeID Hash, parentIDs []Hash, message string) Hash {
	t.Helper()

	args := []string{"commit-tree", "-m", message}
	for _, parentID := range parentIDs {
		args = append(args, "-p", parentID.String())
	}
	args = append(args, treeID.String())

	now := r.clock.Now().Format(time.RFC3339)
	env := []string{fmt.Sprintf("%s=%s", committerTimeKey, now), fmt.Sprintf("%s=%s", authorTimeKey, now)}

	stdOut, err := r.executor(args...).withEnv(env...).executeString()
	if err != nil {
		t.Fatal(fmt.Errorf("unable to create commit: %w", err))
	}
	commitID, err := NewHash(stdOut)
	if err != nil {
		t.Fatal(fmt.Errorf("received invalid commit ID: %w", err))
	}

	return commitID
}

// emptyTreeID returns the hash of the canonical empty Git tree, useful for
// constructing commits in tests that don't care about tree contents.
func (r *Repository) emptyTreeID(t *testing.T) Hash {
	t.Helper()

	hash, err := NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	if err != nil {
		t.Fatal(err)
	}
	return hash
}
