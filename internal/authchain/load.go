// SPDX-License-Identifier: Apache-2.0

// Package authchain implements the Auth-Chain Walker (C4): the component
// that iterates an authentication repository's linear commit history and
// drives the TUF Verifier (C3) stepwise, starting from either the
// repository's very first commit or its last validated commit.
package authchain

import (
	"encoding/json"
	"fmt"

	"github.com/openlawlibrary/taf/internal/metadatastore"
	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/openlawlibrary/taf/internal/tufverify"
)

// loadRole reads roleName's signed-metadata envelope from store and decodes
// its "signed" field into T, returning the parsed role, the raw envelope
// (which the Verifier needs to check signatures), and the exact bytes the
// envelope was read as (which a Snapshot/Timestamp role's recorded hash is
// checked against).
func loadRole[T any](store metadatastore.Reader, roleName string) (*T, *tufverify.SignedEnvelope, []byte, error) {
	raw, err := store.ReadRole(roleName)
	if err != nil {
		return nil, nil, nil, err
	}

	var env tufverify.SignedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, nil, fmt.Errorf("unmarshalling %s envelope: %w", roleName, err)
	}

	var role T
	if err := json.Unmarshal(env.Signed, &role); err != nil {
		return nil, nil, nil, fmt.Errorf("unmarshalling %s role: %w", roleName, err)
	}

	return &role, &env, raw, nil
}

// loadState reads every role present at store's bound commit — root,
// snapshot, timestamp, the top-level targets role, and every targets role
// transitively reachable through its delegations — into a tuf.State, along
// with the signed envelope for each role the Verifier will need.
func loadState(store metadatastore.Reader) (*tuf.State, map[string]*tufverify.SignedEnvelope, error) {
	envelopes := map[string]*tufverify.SignedEnvelope{}
	roleBytes := map[string][]byte{}

	root, rootEnv, rootBytes, err := loadRole[tuf.RootMetadata](store, tuf.RootRoleName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: root: %v", tufverify.ErrMetadataMissing, err)
	}
	envelopes[tuf.RootRoleName] = rootEnv
	roleBytes[tuf.RootRoleName] = rootBytes

	snapshot, snapshotEnv, snapshotBytes, err := loadRole[tuf.SnapshotMetadata](store, tuf.SnapshotRoleName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: snapshot: %v", tufverify.ErrMetadataMissing, err)
	}
	envelopes[tuf.SnapshotRoleName] = snapshotEnv
	roleBytes[tuf.SnapshotRoleName] = snapshotBytes

	timestamp, timestampEnv, timestampBytes, err := loadRole[tuf.TimestampMetadata](store, tuf.TimestampRoleName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: timestamp: %v", tufverify.ErrMetadataMissing, err)
	}
	envelopes[tuf.TimestampRoleName] = timestampEnv
	roleBytes[tuf.TimestampRoleName] = timestampBytes

	targetsRoles, err := loadTargetsTree(store, envelopes, roleBytes)
	if err != nil {
		return nil, nil, err
	}

	return tuf.NewState(root, targetsRoles, snapshot, timestamp, roleBytes), envelopes, nil
}

// loadTargetsTree loads the top-level targets role and breadth-first walks
// its delegations, loading every delegated role it transitively names.
// Discovered envelopes/raw bytes are recorded into envelopes/roleBytes as a
// side effect, matching loadState's bookkeeping for the other roles.
func loadTargetsTree(store metadatastore.Reader, envelopes map[string]*tufverify.SignedEnvelope, roleBytes map[string][]byte) (map[string]*tuf.TargetsMetadata, error) {
	topLevel, topLevelEnv, topLevelBytes, err := loadRole[tuf.TargetsMetadata](store, tuf.TargetsRoleName)
	if err != nil {
		return nil, fmt.Errorf("%w: targets: %v", tufverify.ErrMetadataMissing, err)
	}
	envelopes[tuf.TargetsRoleName] = topLevelEnv
	roleBytes[tuf.TargetsRoleName] = topLevelBytes

	roles := map[string]*tuf.TargetsMetadata{tuf.TargetsRoleName: topLevel}
	visited := map[string]bool{tuf.TargetsRoleName: true}
	queue := delegatedRoleNames(topLevel)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		role, env, raw, err := loadRole[tuf.TargetsMetadata](store, name)
		if err != nil {
			return nil, fmt.Errorf("%w: delegated role %q: %v", tufverify.ErrMetadataMissing, name, err)
		}
		roles[name] = role
		envelopes[name] = env
		roleBytes[name] = raw

		queue = append(queue, delegatedRoleNames(role)...)
	}

	return roles, nil
}

func delegatedRoleNames(role *tuf.TargetsMetadata) []string {
	if role.Delegations == nil {
		return nil
	}
	names := make([]string, 0, len(role.Delegations.Roles))
	for _, delegation := range role.Delegations.Roles {
		if delegation.Name == tuf.AllowRuleName {
			continue
		}
		names = append(names, delegation.Name)
	}
	return names
}
