// SPDX-License-Identifier: Apache-2.0

package tufverify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/openlawlibrary/taf/internal/signerverifier/ssh"
	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/stretchr/testify/require"
)

// sha256Hex returns the hex SHA-256 digest of contents, matching the
// digest convention every TargetFileInfo/TimestampFileInfo hash uses.
func sha256Hex(contents []byte) string {
	digest := sha256.Sum256(contents)
	return hex.EncodeToString(digest[:])
}

// testSigner wraps an ssh signer with the tuf.Key it signs for, matching
// how every fixture in this package is built: a throwaway ssh-keygen key
// pair, since that's TAF's primary signing mechanism.
type testSigner struct {
	key    *tuf.Key
	signer *ssh.Signer
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()

	keyPath := filepath.Join(t.TempDir(), "key")
	cmd := exec.Command("ssh-keygen", "-t", "ed25519", "-N", "", "-f", keyPath, "-C", "tufverify-test")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ssh-keygen unavailable in test environment: %v\n%s", err, output)
	}

	signer, err := ssh.NewSignerFromFile(keyPath)
	require.Nil(t, err)

	return testSigner{key: signer.MetadataKey(), signer: signer}
}

// signEnvelope marshals signed to its canonical-JSON "signed" field and
// produces one signature per entry in signers.
func signEnvelope(t *testing.T, signed any, signers ...testSigner) *SignedEnvelope {
	t.Helper()

	raw, err := json.Marshal(signed)
	require.Nil(t, err)

	canonical, err := encodeCanonicalSigned(raw)
	require.Nil(t, err)

	env := &SignedEnvelope{Signed: raw}
	for _, s := range signers {
		sig, err := s.signer.Sign(context.Background(), canonical)
		require.Nil(t, err)
		env.Signatures = append(env.Signatures, Signature{
			KeyID: s.key.KeyID,
			Sig:   hex.EncodeToString(sig),
		})
	}
	return env
}

// roleBytesOf returns the canonical-JSON bytes of signed, matching what
// tuf.NewState expects for its roleBytes argument.
func roleBytesOf(t *testing.T, signed any) []byte {
	t.Helper()

	raw, err := json.Marshal(signed)
	require.Nil(t, err)
	canonical, err := encodeCanonicalSigned(raw)
	require.Nil(t, err)
	return canonical
}
