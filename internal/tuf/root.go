// SPDX-License-Identifier: Apache-2.0

package tuf

import "github.com/openlawlibrary/taf/internal/common/set"

// RootMetadata defines the schema of TUF's Root role. In addition to the
// standard `root`/`targets` role entries, TAF's root also carries entries
// for `snapshot` and `timestamp`, which the repository's verifier needs to
// establish the consistency of a given commit's metadata bundle.
type RootMetadata struct {
	Type    string          `json:"type"`
	Version int64           `json:"version"`
	Expires string          `json:"expires"`
	Keys    map[string]*Key `json:"keys"`
	Roles   map[string]Role `json:"roles"`
}

// NewRootMetadata returns a new instance of RootMetadata.
func NewRootMetadata() *RootMetadata {
	return &RootMetadata{
		Type: "root",
	}
}

// SetVersion sets the version of the RootMetadata instance. Root versions
// must increase monotonically across an authentication repository's commit
// history; a verifier rejects a decrease or a jump of more than one.
func (r *RootMetadata) SetVersion(version int64) {
	r.Version = version
}

// SetExpires sets the expiry date of the RootMetadata to the value passed in.
func (r *RootMetadata) SetExpires(expires string) {
	r.Expires = expires
}

// AddKey adds a key to the RootMetadata instance.
func (r *RootMetadata) AddKey(key *Key) {
	if r.Keys == nil {
		r.Keys = map[string]*Key{}
	}

	r.Keys[key.KeyID] = key
}

// AddRole adds a role object and associates it with roleName in the
// RootMetadata instance.
func (r *RootMetadata) AddRole(roleName string, role Role) {
	if r.Roles == nil {
		r.Roles = map[string]Role{}
	}

	r.Roles[roleName] = role
}

// RoleFor returns the role entry for roleName, if one is recorded.
func (r *RootMetadata) RoleFor(roleName string) (Role, bool) {
	role, ok := r.Roles[roleName]
	return role, ok
}

// KeysFor resolves a role's key IDs into the Key objects recorded in this
// root's key store. A key ID with no corresponding entry is silently
// skipped; callers that require every key to resolve should compare the
// length of the result against role.KeyIDs.Len().
func (r *RootMetadata) KeysFor(role Role) []*Key {
	if role.KeyIDs == nil {
		return nil
	}

	keys := make([]*Key, 0, role.KeyIDs.Len())
	for _, keyID := range role.KeyIDs.Contents() {
		if key, ok := r.Keys[keyID]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// AddRootKey adds the specified key to the root metadata and authorizes the
// key for the root role.
func (r *RootMetadata) AddRootKey(key *Key) error {
	if key == nil {
		return ErrRootKeyNil
	}

	r.AddKey(key)

	if _, ok := r.Roles[RootRoleName]; !ok {
		r.AddRole(RootRoleName, Role{
			KeyIDs:    set.NewSetFromItems(key.KeyID),
			Threshold: 1,
		})

		return nil
	}

	rootRole := r.Roles[RootRoleName]
	rootRole.KeyIDs.Add(key.KeyID)
	r.Roles[RootRoleName] = rootRole
	return nil
}

// DeleteRootKey removes keyID from the list of trusted Root public keys in
// rootMetadata. It does not remove the key entry itself, as other roles may
// be signed by the same key.
func (r *RootMetadata) DeleteRootKey(keyID string) error {
	if _, ok := r.Roles[RootRoleName]; !ok {
		return nil
	}

	rootRole := r.Roles[RootRoleName]
	if rootRole.KeyIDs.Len() <= rootRole.Threshold {
		return ErrCannotMeetThreshold
	}

	rootRole.KeyIDs.Remove(keyID)
	r.Roles[RootRoleName] = rootRole
	return nil
}

// AddTargetsKey adds the 'targetsKey' as a trusted public key in
// 'rootMetadata' for the top level Targets role.
func (r *RootMetadata) AddTargetsKey(key *Key) error {
	if key == nil {
		return ErrTargetsKeyNil
	}

	r.AddKey(key)

	if _, ok := r.Roles[TargetsRoleName]; !ok {
		r.AddRole(TargetsRoleName, Role{
			KeyIDs:    set.NewSetFromItems(key.KeyID),
			Threshold: 1,
		})

		return nil
	}

	targetsRole := r.Roles[TargetsRoleName]
	targetsRole.KeyIDs.Add(key.KeyID)
	r.Roles[TargetsRoleName] = targetsRole

	return nil
}

// DeleteTargetsKey removes the key matching 'keyID' from trusted public keys
// for the top level Targets role in 'rootMetadata'.
func (r *RootMetadata) DeleteTargetsKey(keyID string) error {
	if keyID == "" {
		return ErrKeyIDEmpty
	}

	if _, ok := r.Roles[TargetsRoleName]; !ok {
		return nil
	}

	targetsRole := r.Roles[TargetsRoleName]

	if targetsRole.KeyIDs.Len() <= targetsRole.Threshold {
		return ErrCannotMeetThreshold
	}

	targetsRole.KeyIDs.Remove(keyID)
	r.Roles[TargetsRoleName] = targetsRole
	return nil
}

// AddSnapshotKey adds 'key' as a trusted public key for the Snapshot role.
func (r *RootMetadata) AddSnapshotKey(key *Key) error {
	if key == nil {
		return ErrSnapshotKeyNil
	}

	r.AddKey(key)

	if _, ok := r.Roles[SnapshotRoleName]; !ok {
		r.AddRole(SnapshotRoleName, Role{
			KeyIDs:    set.NewSetFromItems(key.KeyID),
			Threshold: 1,
		})
		return nil
	}

	snapshotRole := r.Roles[SnapshotRoleName]
	snapshotRole.KeyIDs.Add(key.KeyID)
	r.Roles[SnapshotRoleName] = snapshotRole
	return nil
}

// AddTimestampKey adds 'key' as a trusted public key for the Timestamp role.
func (r *RootMetadata) AddTimestampKey(key *Key) error {
	if key == nil {
		return ErrTimestampKeyNil
	}

	r.AddKey(key)

	if _, ok := r.Roles[TimestampRoleName]; !ok {
		r.AddRole(TimestampRoleName, Role{
			KeyIDs:    set.NewSetFromItems(key.KeyID),
			Threshold: 1,
		})
		return nil
	}

	timestampRole := r.Roles[TimestampRoleName]
	timestampRole.KeyIDs.Add(key.KeyID)
	r.Roles[TimestampRoleName] = timestampRole
	return nil
}

// UpdateRootThreshold sets the threshold for the Root role.
func (r *RootMetadata) UpdateRootThreshold(threshold int) error {
	rootRole, ok := r.Roles[RootRoleName]
	if !ok {
		return ErrRootMetadataNil
	}

	if rootRole.KeyIDs.Len() < threshold {
		return ErrCannotMeetThreshold
	}
	rootRole.Threshold = threshold
	r.Roles[RootRoleName] = rootRole
	return nil
}

// UpdateTargetsThreshold sets the threshold for the top level Targets role.
func (r *RootMetadata) UpdateTargetsThreshold(threshold int) error {
	targetsRole, ok := r.Roles[TargetsRoleName]
	if !ok {
		return ErrTargetsMetadataNil
	}

	if targetsRole.KeyIDs.Len() < threshold {
		return ErrCannotMeetThreshold
	}
	targetsRole.Threshold = threshold
	r.Roles[TargetsRoleName] = targetsRole
	return nil
}
