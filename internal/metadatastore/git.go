// SPDX-License-Identifier: Apache-2.0

package metadatastore

import (
	"strings"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// GitReader serves metadata and target bytes out of a single commit of a
// gitinterface.Repository. This is the backend the Updater binds for every
// commit the Auth-Chain Walker steps through.
type GitReader struct {
	repo     *gitinterface.Repository
	commitID gitinterface.Hash
	treeID   gitinterface.Hash
	files    map[string]gitinterface.Hash
}

// NewGitReader binds a Reader to repo at commitID. The full recursive file
// listing is read once up front so ReadRole/ReadTarget/ListTargets don't
// re-walk the tree for every call.
func NewGitReader(repo *gitinterface.Repository, commitID gitinterface.Hash) (*GitReader, error) {
	treeID, err := repo.GetCommitTreeID(commitID)
	if err != nil {
		return nil, err
	}

	files, err := repo.GetAllFilesInTree(treeID)
	if err != nil {
		return nil, err
	}

	return &GitReader{repo: repo, commitID: commitID, treeID: treeID, files: files}, nil
}

// ReadRole implements Reader.
func (g *GitReader) ReadRole(roleName string) ([]byte, error) {
	return g.readPath(RoleMetadataPath(roleName))
}

// ReadTarget implements Reader.
func (g *GitReader) ReadTarget(name string) ([]byte, error) {
	return g.readPath(TargetPath(name))
}

// ListTargets implements Reader.
func (g *GitReader) ListTargets(prefix string) ([]string, error) {
	root := TargetPath(prefix)
	paths := []string{}
	for path := range g.files {
		if !strings.HasPrefix(path, targetsDir+"/") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(path, root) {
			continue
		}
		paths = append(paths, strings.TrimPrefix(path, targetsDir+"/"))
	}
	return paths, nil
}

func (g *GitReader) readPath(path string) ([]byte, error) {
	blobID, ok := g.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return g.repo.ReadBlob(blobID)
}
