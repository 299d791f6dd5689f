// SPDX-License-Identifier: Apache-2.0

// Package metadatastore serves TUF role metadata and target bytes as of a
// specific Git commit (or, for maintenance tooling, a plain directory).
// This is the only component the TUF Verifier talks to, so its logic stays
// identical whether it's reading a freshly fetched authentication
// repository or a working directory under active authoring.
package metadatastore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested role or target path doesn't
// exist at the bound commit/directory.
var ErrNotFound = errors.New("metadatastore: path not found")

const (
	metadataDir = "metadata"
	targetsDir  = "targets"
)

// RoleMetadataPath returns the repository-relative path a role's signed
// metadata bytes live at.
func RoleMetadataPath(roleName string) string {
	return fmt.Sprintf("%s/%s.json", metadataDir, roleName)
}

// TargetPath returns the repository-relative path a target file (including
// the special `repositories.json`/`mirrors.json`/`dependencies.json`/
// `protected/info.json` files and per-target-repository commit files) lives
// at under `targets/`.
func TargetPath(name string) string {
	return fmt.Sprintf("%s/%s", targetsDir, name)
}

// Reader serves role metadata and target bytes bound to one commit (or, for
// the filesystem backend, one directory). Requests for paths outside the
// store's root, or for roles/targets that don't exist at the bound point,
// return ErrNotFound. The TUF Verifier is the only consumer of this
// interface; it never sees which backend served a request.
type Reader interface {
	// ReadRole returns the raw signed-metadata bytes for roleName (e.g.
	// `root`, `targets`, `snapshot`, `timestamp`, or a delegated role name).
	ReadRole(roleName string) ([]byte, error)

	// ReadTarget returns the raw bytes of the target file at name (a path
	// relative to `targets/`, e.g. `repositories.json` or
	// `<ns>/<repo>`).
	ReadTarget(name string) ([]byte, error)

	// ListTargets enumerates every target path under prefix (a path
	// relative to `targets/`; the empty string lists everything).
	ListTargets(prefix string) ([]string, error)
}
