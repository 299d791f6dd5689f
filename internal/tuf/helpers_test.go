// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package tuf

import (
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/openlawlibrary/taf/internal/common/set"
	"github.com/openlawlibrary/taf/internal/signerverifier/ssh"
)

// newTestKey generates a throwaway ed25519 ssh-keygen key pair and returns
// its metadata key, matching the fixture convention used across this module.
func newTestKey(t *testing.T) *Key {
	t.Helper()

	keyPath := filepath.Join(t.TempDir(), "key")
	cmd := exec.Command("ssh-keygen", "-t", "ed25519", "-N", "", "-f", keyPath, "-C", "tuf-test")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ssh-keygen unavailable in test environment: %v\n%s", err, output)
	}

	signer, err := ssh.NewSignerFromFile(keyPath)
	if err != nil {
		t.Fatal(err)
	}

	return signer.MetadataKey()
}

func initialTestRootMetadata(t *testing.T, rootKey *Key) *RootMetadata {
	t.Helper()

	rootMetadata := NewRootMetadata()
	rootMetadata.SetVersion(1)
	rootMetadata.SetExpires(time.Now().AddDate(1, 0, 0).Format(time.RFC3339))
	rootMetadata.AddKey(rootKey)

	rootMetadata.AddRole(RootRoleName, Role{
		KeyIDs:    set.NewSetFromItems(rootKey.KeyID),
		Threshold: 1,
	})

	return rootMetadata
}

func initialTestTargetsMetadata(t *testing.T) *TargetsMetadata {
	t.Helper()

	targetsMetadata := NewTargetsMetadata()
	targetsMetadata.SetVersion(1)
	targetsMetadata.SetExpires(time.Now().AddDate(1, 0, 0).Format(time.RFC3339))
	targetsMetadata.Delegations.AddDelegation(AllowRule())
	return targetsMetadata
}
