// SPDX-License-Identifier: Apache-2.0

// Package metadata defines the typed Go shape of the authentication
// repository's special target files: repositories.json, mirrors.json,
// dependencies.json, protected/info.json, and the per-target-repository
// commit file. Field names match the on-disk JSON exactly so these structs
// round-trip the bytes a TUF targets role already committed to a hash for.
package metadata

import "encoding/json"

// RepositoriesJSON is the authoritative enumeration of target repositories
// an authentication repository vouches for, keyed by full name
// (`<namespace>/<name>`).
type RepositoriesJSON struct {
	Repositories map[string]RepositoryEntry `json:"repositories"`
}

// RepositoryEntry is one repositories.json entry. AllowUnauthenticatedCommits
// historically lives under Custom; new authoring tools may also set the
// top-level field, which callers should prefer when both are present.
type RepositoryEntry struct {
	Custom                      map[string]json.RawMessage `json:"custom,omitempty"`
	AllowUnauthenticatedCommits *bool                      `json:"allow-unauthenticated-commits,omitempty"`
}

// AllowsUnauthenticatedCommits resolves the effective flag, preferring the
// top-level field over the legacy custom-field location.
func (e RepositoryEntry) AllowsUnauthenticatedCommits() bool {
	if e.AllowUnauthenticatedCommits != nil {
		return *e.AllowUnauthenticatedCommits
	}

	raw, ok := e.Custom["allow-unauthenticated-commits"]
	if !ok {
		return false
	}

	var allowed bool
	if err := json.Unmarshal(raw, &allowed); err != nil {
		return false
	}
	return allowed
}

// MirrorsJSON is a non-empty ordered list of URL templates, each containing
// the placeholders `{org_name}` and `{repo_name}`.
type MirrorsJSON struct {
	Mirrors []string `json:"mirrors"`
}

// DependenciesJSON enumerates child authentication repositories this AR
// recurses into.
type DependenciesJSON struct {
	Dependencies map[string]DependencyEntry `json:"dependencies"`
}

// DependencyEntry names a child AR's out-of-band pinned first commit, if
// one was supplied by the authoring tooling.
type DependencyEntry struct {
	OutOfBandAuthentication string `json:"out-of-band-authentication,omitempty"`
}

// ProtectedInfoJSON names the authentication repository itself, when
// protected/info.json is present.
type ProtectedInfoJSON struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// TargetCommit is the authorized `{branch, commit}` pair published at
// targets/<namespace>/<name> for one target repository, as of one AR
// commit. Extra fields a repository publishes alongside branch/commit are
// preserved as Custom so re-serialization (by maintenance tooling, not the
// Updater) doesn't silently drop them.
type TargetCommit struct {
	Branch string                     `json:"branch"`
	Commit string                     `json:"commit"`
	Custom map[string]json.RawMessage `json:"custom,omitempty"`
}
