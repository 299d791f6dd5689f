// SPDX-License-Identifier: Apache-2.0

package tufverify

import (
	"context"
	"testing"

	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountValidSignatures(t *testing.T) {
	signerA := newTestSigner(t)
	signerB := newTestSigner(t)
	signerUnused := newTestSigner(t)

	env := signEnvelope(t, map[string]any{"type": "root", "version": 1}, signerA, signerB)

	count, err := CountValidSignatures(context.Background(), env, []*tuf.Key{signerA.key, signerB.key, signerUnused.key})
	require.Nil(t, err)
	assert.Equal(t, 2, count)
}

func TestCountValidSignaturesIgnoresUnrelatedKeys(t *testing.T) {
	signerA := newTestSigner(t)
	signerB := newTestSigner(t)

	env := signEnvelope(t, map[string]any{"type": "root", "version": 1}, signerA)

	count, err := CountValidSignatures(context.Background(), env, []*tuf.Key{signerB.key})
	require.Nil(t, err)
	assert.Equal(t, 0, count)
}

func TestCountValidSignaturesTamperedPayload(t *testing.T) {
	signerA := newTestSigner(t)

	env := signEnvelope(t, map[string]any{"type": "root", "version": 1}, signerA)
	env.Signed = []byte(`{"type":"root","version":2}`)

	count, err := CountValidSignatures(context.Background(), env, []*tuf.Key{signerA.key})
	require.Nil(t, err)
	assert.Equal(t, 0, count, "signature over the original payload must not verify against tampered bytes")
}

func TestCountValidSignaturesUnsupportedAlgorithm(t *testing.T) {
	signerA := newTestSigner(t)
	env := signEnvelope(t, map[string]any{"type": "root", "version": 1}, signerA)

	unsupported := &tuf.Key{KeyID: signerA.key.KeyID, KeyType: "bogus-algorithm", Scheme: "bogus-scheme"}
	_, err := CountValidSignatures(context.Background(), env, []*tuf.Key{unsupported})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestDecodeSignatureHexAndRaw(t *testing.T) {
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, decodeSignature("deadbeef"))
	assert.Equal(t, []byte("-----BEGIN SSH SIGNATURE-----"), decodeSignature("-----BEGIN SSH SIGNATURE-----"))
}
