// SPDX-License-Identifier: Apache-2.0

package tuf

import (
	"crypto/sha256"
	"encoding/hex"
)

// State aggregates one AR commit's complete role set: root, every targets
// role (the top-level one plus any transitively delegated roles, keyed by
// role name), snapshot, and timestamp. It is the unit the Verifier compares
// across two successive commits and the unit C5/C6 read derived facts from.
type State struct {
	Root      *RootMetadata
	Targets   map[string]*TargetsMetadata
	Snapshot  *SnapshotMetadata
	Timestamp *TimestampMetadata

	// roleBytes holds the canonical-JSON-encoded bytes the role's signatures
	// were computed over, keyed by role name. RoleHash digests these rather
	// than re-serializing the parsed struct, so the returned hash always
	// matches what was actually signed even if field order or an unknown
	// custom field would otherwise produce different bytes on re-encoding.
	roleBytes map[string][]byte
}

// NewState constructs a State from its parsed roles and the canonical bytes
// each was loaded from.
func NewState(root *RootMetadata, targets map[string]*TargetsMetadata, snapshot *SnapshotMetadata, timestamp *TimestampMetadata, roleBytes map[string][]byte) *State {
	return &State{
		Root:      root,
		Targets:   targets,
		Snapshot:  snapshot,
		Timestamp: timestamp,
		roleBytes: roleBytes,
	}
}

// RoleVersion returns the version recorded by roleName's own metadata
// (root, snapshot, timestamp, or a top-level/delegated targets role), and
// whether that role is present in this state at all.
func (s *State) RoleVersion(roleName string) (int64, bool) {
	switch roleName {
	case RootRoleName:
		if s.Root == nil {
			return 0, false
		}
		return s.Root.Version, true
	case SnapshotRoleName:
		if s.Snapshot == nil {
			return 0, false
		}
		return s.Snapshot.Version, true
	case TimestampRoleName:
		if s.Timestamp == nil {
			return 0, false
		}
		return s.Timestamp.Version, true
	default:
		targets, ok := s.Targets[roleName]
		if !ok {
			return 0, false
		}
		return targets.Version, true
	}
}

// TargetsOf returns the target file listing for roleName (the top-level
// targets role, or a delegated role reachable from it), and whether the
// role is present.
func (s *State) TargetsOf(roleName string) (map[string]any, bool) {
	targets, ok := s.Targets[roleName]
	if !ok {
		return nil, false
	}
	return targets.Targets, true
}

// DelegationsOf returns the delegations recorded by roleName's targets
// metadata, and whether the role is present.
func (s *State) DelegationsOf(roleName string) (*Delegations, bool) {
	targets, ok := s.Targets[roleName]
	if !ok {
		return nil, false
	}
	return targets.Delegations, true
}

// RoleHash returns the hex SHA-256 digest of roleName's canonical-JSON
// bytes as loaded into this state, matching the digest the Snapshot or
// Timestamp role would record for it, and whether roleName's bytes are
// present in this state.
func (s *State) RoleHash(roleName string) (string, bool) {
	b, ok := s.roleBytes[roleName]
	if !ok {
		return "", false
	}
	digest := sha256.Sum256(b)
	return hex.EncodeToString(digest[:]), true
}
