// SPDX-License-Identifier: Apache-2.0

package gpg

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateGPGKey creates an ephemeral GPG home directory and key for the
// test, and returns the key's fingerprint plus the GNUPGHOME to use.
func generateGPGKey(t *testing.T) (homeDir, fingerprint string) {
	t.Helper()

	homeDir = t.TempDir()
	genCmd := exec.Command(
		"gpg", "--batch", "--homedir", homeDir,
		"--pinentry-mode", "loopback", "--passphrase", "",
		"--quick-gen-key", "TAF Test <taf-test@example.com>", "rsa2048", "sign", "0",
	)
	if output, err := genCmd.CombinedOutput(); err != nil {
		t.Skipf("gpg unavailable in test environment: %v\n%s", err, output)
	}

	listCmd := exec.Command("gpg", "--batch", "--homedir", homeDir, "--with-colons", "--list-keys", "taf-test@example.com")
	output, err := listCmd.CombinedOutput()
	require.Nil(t, err)

	for _, line := range bytes.Split(output, []byte("\n")) {
		fields := bytes.Split(line, []byte(":"))
		if len(fields) > 0 && string(fields[0]) == "fpr" {
			fingerprint = string(fields[len(fields)-2])
			break
		}
	}
	require.NotEmpty(t, fingerprint)

	return homeDir, fingerprint
}

func TestSignAndVerify(t *testing.T) {
	homeDir, fingerprint := generateGPGKey(t)
	t.Setenv("GNUPGHOME", homeDir)

	signer, err := NewSignerFromKeyID(fingerprint, WithGPGProgram("gpg"))
	require.Nil(t, err)

	data := []byte(`{"signed":{"type":"root"}}`)
	sig, err := signer.Sign(context.Background(), data)
	require.Nil(t, err)

	err = signer.Verify(context.Background(), data, sig)
	assert.Nil(t, err)

	err = signer.Verify(context.Background(), []byte("tampered"), sig)
	assert.Error(t, err)
}

func TestLoadGPGKeyFromBytes(t *testing.T) {
	homeDir, fingerprint := generateGPGKey(t)
	t.Setenv("GNUPGHOME", homeDir)

	exportCmd := exec.Command("gpg", "--batch", "--homedir", homeDir, "--armor", "--export", fingerprint)
	keyBytes, err := exportCmd.Output()
	require.Nil(t, err)

	key, err := LoadGPGKeyFromBytes(keyBytes)
	require.Nil(t, err)
	assert.Equal(t, KeyType, key.KeyType)
	assert.Equal(t, KeyType, key.Scheme)
	assert.Equal(t, fingerprint, key.KeyID)
}
