// SPDX-License-Identifier: Apache-2.0

package tufverify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/openlawlibrary/taf/internal/metadatastore"
	"github.com/openlawlibrary/taf/internal/tuf"
)

// verifyTargetFiles walks the delegation tree starting at the top-level
// targets role, breadth-first, checking that every target path each visited
// role declares directly matches the bytes store serves for that path.
// Every role named in a delegation list, other than the allow rule, is
// visited in delegation order; the `terminating` flag is not consulted, so
// no delegation stops later roles in its list from being visited.
func verifyTargetFiles(curr *tuf.State, store metadatastore.Reader) error {
	queue := []string{tuf.TargetsRoleName}
	visited := map[string]bool{}

	for len(queue) > 0 {
		roleName := queue[0]
		queue = queue[1:]

		if visited[roleName] {
			continue
		}
		visited[roleName] = true

		targets, ok := curr.TargetsOf(roleName)
		if !ok {
			return fmt.Errorf("%w: delegated role %q", ErrMetadataMissing, roleName)
		}

		for path, entry := range targets {
			info, err := tuf.AsTargetFileInfo(entry)
			if err != nil {
				return fmt.Errorf("%w: target entry for %q: %v", ErrTargetHashMismatch, path, err)
			}

			if err := verifyTargetBytes(store, path, info); err != nil {
				return err
			}
		}

		delegations, ok := curr.DelegationsOf(roleName)
		if !ok || delegations == nil {
			continue
		}

		for _, delegation := range delegations.Roles {
			if delegation.Name == tuf.AllowRuleName {
				continue
			}
			queue = append(queue, delegation.Name)
		}
	}

	return nil
}

// verifyTargetBytes checks that the bytes store serves for path match the
// length and digests recorded in info.
func verifyTargetBytes(store metadatastore.Reader, path string, info tuf.TargetFileInfo) error {
	contents, err := store.ReadTarget(path)
	if err != nil {
		return fmt.Errorf("%w: target %q: %v", ErrTargetHashMismatch, path, err)
	}

	if int64(len(contents)) != info.Length {
		return fmt.Errorf("%w: target %q has length %d, expected %d", ErrTargetHashMismatch, path, len(contents), info.Length)
	}

	for algorithm, expected := range info.Hashes {
		if algorithm != "sha256" {
			return fmt.Errorf("%w: target %q uses unsupported digest algorithm %q", ErrUnsupportedAlgorithm, path, algorithm)
		}

		digest := sha256.Sum256(contents)
		if hex.EncodeToString(digest[:]) != expected {
			return fmt.Errorf("%w: target %q digest mismatch", ErrTargetHashMismatch, path)
		}
	}

	return nil
}
