// SPDX-License-Identifier: Apache-2.0

package tufverify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/openlawlibrary/taf/internal/metadatastore"
	"github.com/openlawlibrary/taf/internal/tuf"
)

// VerifyTransition decides whether curr is a legitimate continuation of
// prev. currEnvelopes carries the raw signed-metadata envelope for every
// role present in curr (root, targets, every delegated targets role,
// snapshot, timestamp) keyed by role name; prev's roles are assumed already
// verified by an earlier call and are used here only to check version
// continuity and, for a rotated root, the outgoing threshold. store serves
// curr's target bytes for the final hash-matching pass.
//
// Roles are checked in the order root -> timestamp -> snapshot -> targets
// -> delegated targets, matching the breadth-first order the rest of the
// pipeline assumes signature verification happens in.
func VerifyTransition(ctx context.Context, prev, curr *tuf.State, currEnvelopes map[string]*SignedEnvelope, store metadatastore.Reader) error {
	if err := verifyRootChain(ctx, prev, curr, currEnvelopes); err != nil {
		return err
	}

	if err := verifyDelegatedTrust(ctx, curr, currEnvelopes); err != nil {
		return err
	}

	if err := verifyTimestampAgainstSnapshot(curr, store); err != nil {
		return err
	}

	if err := verifySnapshotVersions(prev, curr); err != nil {
		return err
	}

	if err := verifyTargetFiles(curr, store); err != nil {
		return err
	}

	return nil
}

// verifyRootChain implements spec enforcement item 1: the root role either
// carries over unchanged or advances by exactly one version; a rotated root
// must be signed by a threshold of the outgoing root's keys and a threshold
// of its own declared keys.
func verifyRootChain(ctx context.Context, prev, curr *tuf.State, currEnvelopes map[string]*SignedEnvelope) error {
	if curr.Root == nil {
		return fmt.Errorf("%w: root", ErrMetadataMissing)
	}

	rootEnv, ok := currEnvelopes[tuf.RootRoleName]
	if !ok {
		return fmt.Errorf("%w: root envelope", ErrMetadataMissing)
	}

	currRole, ok := curr.Root.RoleFor(tuf.RootRoleName)
	if !ok {
		return fmt.Errorf("%w: root role entry", ErrMetadataMissing)
	}

	switch {
	case prev == nil || prev.Root == nil:
		// Bootstrap: nothing to chain from, only curr's own threshold applies.
	case curr.Root.Version == prev.Root.Version:
		// Unchanged root, ordinary single-threshold check below.
	case curr.Root.Version == prev.Root.Version+1:
		prevRole, ok := prev.Root.RoleFor(tuf.RootRoleName)
		if !ok {
			return fmt.Errorf("%w: previous root role entry", ErrMetadataMissing)
		}
		prevKeys := prev.Root.KeysFor(prevRole)
		verified, err := CountValidSignatures(ctx, rootEnv, prevKeys)
		if err != nil {
			return err
		}
		if verified < prevRole.Threshold {
			return fmt.Errorf("%w: rotated root signed by %d of %d required outgoing keys", ErrThresholdUnmet, verified, prevRole.Threshold)
		}
	case curr.Root.Version < prev.Root.Version:
		return fmt.Errorf("%w: root went from version %d to %d", ErrVersionRegression, prev.Root.Version, curr.Root.Version)
	default:
		return fmt.Errorf("%w: root jumped from version %d to %d", ErrVersionSkip, prev.Root.Version, curr.Root.Version)
	}

	currKeys := curr.Root.KeysFor(currRole)
	verified, err := CountValidSignatures(ctx, rootEnv, currKeys)
	if err != nil {
		return err
	}
	if verified < currRole.Threshold {
		return fmt.Errorf("%w: root signed by %d of %d required keys", ErrThresholdUnmet, verified, currRole.Threshold)
	}

	return nil
}

// verifyDelegatedTrust implements spec enforcement item 2: timestamp,
// snapshot, and targets verify, in that order, against the keys curr's own
// root declares for them.
func verifyDelegatedTrust(ctx context.Context, curr *tuf.State, currEnvelopes map[string]*SignedEnvelope) error {
	for _, roleName := range []string{tuf.TimestampRoleName, tuf.SnapshotRoleName, tuf.TargetsRoleName} {
		role, ok := curr.Root.RoleFor(roleName)
		if !ok {
			return fmt.Errorf("%w: %s role entry in root", ErrMetadataMissing, roleName)
		}

		env, ok := currEnvelopes[roleName]
		if !ok {
			return fmt.Errorf("%w: %s envelope", ErrMetadataMissing, roleName)
		}

		keys := curr.Root.KeysFor(role)
		verified, err := CountValidSignatures(ctx, env, keys)
		if err != nil {
			return err
		}
		if verified < role.Threshold {
			return fmt.Errorf("%w: %s signed by %d of %d required keys", ErrThresholdUnmet, roleName, verified, role.Threshold)
		}

		slog.Debug("role signature threshold met", "role", roleName, "verified", verified, "threshold", role.Threshold)
	}

	return nil
}

// verifyTimestampAgainstSnapshot implements spec enforcement item 3: the
// timestamp role in curr records a (version, hash, length) matching the
// snapshot bytes actually present in curr. The raw bytes are re-read from
// store rather than re-serialized, since a re-serialization could produce
// different bytes than what was actually signed.
func verifyTimestampAgainstSnapshot(curr *tuf.State, store metadatastore.Reader) error {
	if curr.Timestamp == nil {
		return fmt.Errorf("%w: timestamp", ErrMetadataMissing)
	}
	if curr.Snapshot == nil {
		return fmt.Errorf("%w: snapshot", ErrMetadataMissing)
	}

	info, ok := curr.Timestamp.SnapshotInfo()
	if !ok {
		return fmt.Errorf("%w: timestamp has no snapshot entry", ErrSnapshotTimestampMismatch)
	}

	if info.Version != curr.Snapshot.Version {
		return fmt.Errorf("%w: timestamp records snapshot version %d, snapshot is version %d", ErrSnapshotTimestampMismatch, info.Version, curr.Snapshot.Version)
	}

	snapshotBytes, err := store.ReadRole(tuf.SnapshotRoleName)
	if err != nil {
		return fmt.Errorf("%w: reading snapshot bytes: %v", ErrMetadataMissing, err)
	}

	if int64(len(snapshotBytes)) != info.Length {
		return fmt.Errorf("%w: timestamp records snapshot length %d, actual length %d", ErrSnapshotTimestampMismatch, info.Length, len(snapshotBytes))
	}

	digest := sha256.Sum256(snapshotBytes)
	actualHash := hex.EncodeToString(digest[:])
	if expected, ok := info.Hashes["sha256"]; ok && expected != actualHash {
		return fmt.Errorf("%w: timestamp records snapshot hash %s, actual %s", ErrSnapshotTimestampMismatch, expected, actualHash)
	}

	return nil
}

// verifySnapshotVersions implements spec enforcement item 4: the snapshot
// lists a version for every targets role (top-level and delegated)
// consistent with that role's actual version, and the version for each such
// role never regresses and never skips more than one value from prev.
func verifySnapshotVersions(prev, curr *tuf.State) error {
	for roleName, targets := range curr.Targets {
		version, ok := curr.Snapshot.VersionFor(roleName)
		if !ok {
			return fmt.Errorf("%w: snapshot has no entry for targets role %q", ErrMetadataMissing, roleName)
		}

		if version != targets.Version {
			return fmt.Errorf("%w: snapshot records %q at version %d, role is actually version %d", ErrSnapshotTimestampMismatch, roleName, version, targets.Version)
		}

		if prev == nil || prev.Snapshot == nil {
			continue
		}

		prevVersion, ok := prev.Snapshot.VersionFor(roleName)
		if !ok {
			// Newly introduced delegated role; nothing to compare against.
			continue
		}

		switch {
		case version < prevVersion:
			return fmt.Errorf("%w: %q went from version %d to %d", ErrVersionRegression, roleName, prevVersion, version)
		case version > prevVersion+1:
			return fmt.Errorf("%w: %q jumped from version %d to %d", ErrVersionSkip, roleName, prevVersion, version)
		}
	}

	return nil
}
