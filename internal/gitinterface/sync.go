// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
)

const DefaultRemoteName = "origin"

func (r *Repository) PushRefSpec(remoteName string, refSpecs []string) error {
	args := []string{"push", remoteName}
	args = append(args, refSpecs...)

	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to push: %w", err)
	}

	return nil
}

func (r *Repository) Push(remoteName string, refs []string) error {
	refSpecs := make([]string, 0, len(refs))
	for _, ref := range refs {
		refSpec, err := r.RefSpec(ref, "", true)
		if err != nil {
			return err
		}
		refSpecs = append(refSpecs, refSpec)
	}

	return r.PushRefSpec(remoteName, refSpecs)
}

func (r *Repository) FetchRefSpec(remoteName string, refSpecs []string) error {
	args := []string{"fetch", remoteName}
	args = append(args, refSpecs...)

	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to fetch: %w", err)
	}

	return nil
}

func (r *Repository) Fetch(remoteName string, refs []string, fastForwardOnly bool) error {
	refSpecs := make([]string, 0, len(refs))
	for _, ref := range refs {
		refSpec, err := r.RefSpec(ref, "", fastForwardOnly)
		if err != nil {
			return err
		}
		refSpecs = append(refSpecs, refSpec)
	}

	return r.FetchRefSpec(remoteName, refSpecs)
}

func (r *Repository) FetchObject(remoteName string, objectID Hash) error {
	args := []string{"fetch", remoteName, objectID.String()}
	_, err := r.executor(args...).executeString()
	if err != nil {
		return fmt.Errorf("unable to fetch object: %w", err)
	}

	return nil
}

func CloneAndFetchRepository(remoteURL, dir, initialBranch string, refs []string, bare bool) (*Repository, error) {
	if dir == "" {
		return nil, fmt.Errorf("target directory must be specified")
	}

	repo := &Repository{clock: clockwork.NewRealClock()}

	args := []string{"clone", remoteURL}
	if initialBranch != "" {
		initialBranch = strings.TrimPrefix(initialBranch, BranchRefPrefix)
		args = append(args, "--branch", initialBranch)
	}
	args = append(args, dir)

	if bare {
		args = append(args, "--bare")
		repo.gitDirPath = dir
	} else {
		repo.gitDirPath = path.Join(dir, ".git")
	}

	_, stdErr, err := repo.executor(args...).execute()
	if err != nil {
		return nil, fmt.Errorf("unable to clone repository: %s", stdErr)
	}

	return repo, repo.Fetch(DefaultRemoteName, refs, true)
}

func (r *Repository) CreateRemote(remoteName, remoteURL string) error {
	_, err := r.executor("remote", "add", remoteName, remoteURL).executeString()
	if err != nil {
		return fmt.Errorf("unable to add remote: %w", err)
	}

	return nil
}

// FetchBare creates (if necessary) a bare mirror of remoteURL at dir and
// fetches refs into it. It never materializes a working tree, matching the
// Git Worker's mandate to not execute or interpret tracked file content: a
// bare repository only ever touches the object database and refs.
//
// If dir already contains a bare repository, FetchBare reuses it and fetches
// into the existing object database rather than re-cloning, so repeated
// calls behave as incremental updates.
func FetchBare(remoteURL, dir string, refs []string) (*Repository, error) {
	if dir == "" {
		return nil, fmt.Errorf("target directory must be specified")
	}

	if _, err := os.Stat(filepath.Join(dir, "HEAD")); err == nil {
		repo := loadBareRepository(dir)
		if err := repo.Fetch(DefaultRemoteName, refs, false); err != nil {
			return nil, fmt.Errorf("unable to fetch into existing bare mirror: %w", err)
		}
		return repo, nil
	}

	return CloneAndFetchRepository(remoteURL, dir, "", refs, true)
}

// EnsureWorkingCopy materializes (or reuses) a non-bare working copy of the
// bare repository at bareDir, checked out at commitID, in workDir. It
// refuses to check out over a dirty working tree so that Git Worker callers
// never silently discard local modifications.
func EnsureWorkingCopy(bareRepo *Repository, workDir string, commitID Hash) (*Repository, error) {
	gitDirPath := filepath.Join(workDir, ".git")

	if _, err := os.Stat(gitDirPath); os.IsNotExist(err) {
		if _, stdErr, err := (&Repository{clock: bareRepo.clock}).executor("clone", bareRepo.gitDirPath, workDir).withoutGitDir().execute(); err != nil {
			return nil, fmt.Errorf("unable to create working copy: %s", stdErr)
		}
	}

	repo := &Repository{gitDirPath: gitDirPath, clock: bareRepo.clock}

	statuses, err := repo.Status()
	if err != nil {
		return nil, fmt.Errorf("unable to check working copy cleanliness: %w", err)
	}
	for path, status := range statuses {
		if status.Untracked() {
			continue
		}
		return nil, fmt.Errorf("working copy at '%s' has local modifications to '%s', refusing to check out '%s'", workDir, path, commitID.String())
	}

	if _, err := repo.executor("-C", workDir, "fetch", bareRepo.gitDirPath, "+refs/heads/*:refs/remotes/origin/*").withoutGitDir().executeString(); err != nil {
		return nil, fmt.Errorf("unable to fetch into working copy: %w", err)
	}

	if _, err := repo.executor("-C", workDir, "checkout", "--detach", commitID.String()).withoutGitDir().executeString(); err != nil {
		return nil, fmt.Errorf("unable to check out commit '%s': %w", commitID.String(), err)
	}

	return repo, nil
}
