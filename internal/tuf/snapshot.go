// SPDX-License-Identifier: Apache-2.0

package tuf

import "errors"

var ErrSnapshotMetaMissing = errors.New("snapshot metadata has no entry for role")

// SnapshotFileInfo records the version of a single role as published in a
// Snapshot role's `meta` map.
type SnapshotFileInfo struct {
	Version int64 `json:"version"`
}

// SnapshotMetadata defines the schema of TUF's Snapshot role: for every
// non-timestamp top-level role and every delegated targets role, the
// version the Snapshot author observed when it was last produced. A
// transition's Verifier checks each of these versions against the role
// bytes served by the Metadata Store Adapter for the same commit.
type SnapshotMetadata struct {
	Type    string                      `json:"type"`
	Version int64                       `json:"version"`
	Expires string                      `json:"expires"`
	Meta    map[string]SnapshotFileInfo `json:"meta"`
}

// NewSnapshotMetadata returns a new instance of SnapshotMetadata.
func NewSnapshotMetadata() *SnapshotMetadata {
	return &SnapshotMetadata{
		Type: "snapshot",
		Meta: map[string]SnapshotFileInfo{},
	}
}

// SetVersion sets the version of the SnapshotMetadata instance.
func (s *SnapshotMetadata) SetVersion(version int64) {
	s.Version = version
}

// SetExpires sets the expiry date of the SnapshotMetadata to the value
// passed in.
func (s *SnapshotMetadata) SetExpires(expires string) {
	s.Expires = expires
}

// AddRoleVersion records roleName's version as of this snapshot, adding a
// new entry or overwriting an existing one.
func (s *SnapshotMetadata) AddRoleVersion(roleName string, version int64) {
	if s.Meta == nil {
		s.Meta = map[string]SnapshotFileInfo{}
	}
	s.Meta[roleName] = SnapshotFileInfo{Version: version}
}

// VersionFor returns the version snapshot records for roleName, and whether
// an entry for it exists at all.
func (s *SnapshotMetadata) VersionFor(roleName string) (int64, bool) {
	info, ok := s.Meta[roleName]
	if !ok {
		return 0, false
	}
	return info.Version, true
}
