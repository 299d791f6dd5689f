// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package tuf

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openlawlibrary/taf/internal/signerverifier/ssh"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeyFromBytes(t *testing.T) {
	key := newTestKey(t)

	keyBytes, err := json.Marshal(key)
	require.Nil(t, err)

	loaded, err := LoadKeyFromBytes(keyBytes)
	require.Nil(t, err)
	assert.Equal(t, key.KeyID, loaded.KeyID)
	assert.Equal(t, key.KeyType, loaded.KeyType)
}

func TestCalculateKeyID(t *testing.T) {
	key := newTestKey(t)

	keyID, err := CalculateKeyID(key)
	require.Nil(t, err)
	assert.NotEmpty(t, keyID)

	// Computing the ID twice must be stable.
	keyID2, err := CalculateKeyID(key)
	require.Nil(t, err)
	assert.Equal(t, keyID, keyID2)
}

// TestSignedRootRoundTrip exercises the canonical-JSON signed-metadata
// envelope TAF uses in place of DSSE: the role's bytes are canonicalized,
// signed directly, and the signature verified against the same bytes.
func TestSignedRootRoundTrip(t *testing.T) {
	rootMetadata := initialTestRootMetadata(t, newTestKey(t))

	canonical, err := cjson.EncodeCanonical(rootMetadata)
	require.Nil(t, err)

	verifier, err := ssh.NewVerifierFromKey(rootMetadata.Keys[rootMetadata.Roles[RootRoleName].KeyIDs.Contents()[0]])
	require.Nil(t, err)

	// A bogus signature must fail verification against the canonicalized bytes.
	err = verifier.Verify(context.Background(), canonical, []byte("not-a-signature"))
	assert.Error(t, err)
}
