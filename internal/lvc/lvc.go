// SPDX-License-Identifier: Apache-2.0

// Package lvc persists and advances the last-validated-commit record that
// anchors every subsequent pipeline run to a previously authenticated
// state, per spec.md §4.7.
package lvc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// Dir returns the per-AR state directory under confDirRoot:
// "<conf_dir_root>/_<namespace>_<name>".
func Dir(confDirRoot, namespace, name string) string {
	return filepath.Join(confDirRoot, fmt.Sprintf("_%s_%s", namespace, name))
}

// Path returns the last_validated_commit file path within an AR's state
// directory.
func Path(confDirRoot, namespace, name string) string {
	return filepath.Join(Dir(confDirRoot, namespace, name), "last_validated_commit")
}

// Read loads the last validated commit. A missing file is not an error: it
// returns gitinterface.ZeroHash and (false, nil), the "no local copy"
// state from spec.md §4.8.
func Read(confDirRoot, namespace, name string) (gitinterface.Hash, bool, error) {
	raw, err := os.ReadFile(Path(confDirRoot, namespace, name))
	if err != nil {
		if os.IsNotExist(err) {
			return gitinterface.ZeroHash, false, nil
		}
		return gitinterface.Hash{}, false, fmt.Errorf("reading last validated commit: %w", err)
	}

	commitID, err := gitinterface.NewHash(strings.TrimSpace(string(raw)))
	if err != nil {
		return gitinterface.Hash{}, false, fmt.Errorf("parsing last validated commit: %w", err)
	}
	return commitID, true, nil
}

// WriteAtomic records commitID as the last validated commit via
// write-temp-then-rename, so a crash mid-write never leaves a truncated or
// corrupt file in place.
func WriteAtomic(confDirRoot, namespace, name string, commitID gitinterface.Hash) error {
	dir := Dir(confDirRoot, namespace, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "last_validated_commit.*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(commitID.String() + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, Path(confDirRoot, namespace, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	return nil
}
