// SPDX-License-Identifier: Apache-2.0

package authchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/signerverifier/ssh"
	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/openlawlibrary/taf/internal/tufverify"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonicalSigned mirrors tufverify's own canonicalization of a role's
// "signed" field: what every signature in an envelope is actually computed
// over, used here only to produce signatures (not to decide what the store
// serves, which is the committed envelope's raw bytes).
func canonicalSigned(t *testing.T, signedRaw json.RawMessage) []byte {
	t.Helper()

	var value any
	require.Nil(t, json.Unmarshal(signedRaw, &value))
	canonical, err := cjson.EncodeCanonical(value)
	require.Nil(t, err)
	return canonical
}

func sha256Hex(contents []byte) string {
	digest := sha256.Sum256(contents)
	return hex.EncodeToString(digest[:])
}

type testSigner struct {
	key    *tuf.Key
	signer *ssh.Signer
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()

	keyPath := filepath.Join(t.TempDir(), "key")
	cmd := exec.Command("ssh-keygen", "-t", "ed25519", "-N", "", "-f", keyPath, "-C", "authchain-test")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ssh-keygen unavailable in test environment: %v\n%s", err, output)
	}

	signer, err := ssh.NewSignerFromFile(keyPath)
	require.Nil(t, err)

	return testSigner{key: signer.MetadataKey(), signer: signer}
}

// encodeSigned marshals signed and wraps it in a tufverify.SignedEnvelope
// carrying one signature per entry in signers, returning the envelope's own
// serialized bytes (what a Git commit would actually store at
// metadata/<role>.json).
func encodeSigned(t *testing.T, signed any, signers ...testSigner) []byte {
	t.Helper()

	raw, err := json.Marshal(signed)
	require.Nil(t, err)

	canonical := canonicalSigned(t, raw)

	env := tufverify.SignedEnvelope{Signed: raw}
	for _, s := range signers {
		sig, err := s.signer.Sign(context.Background(), canonical)
		require.Nil(t, err)
		env.Signatures = append(env.Signatures, tufverify.Signature{KeyID: s.key.KeyID, Sig: hex.EncodeToString(sig)})
	}

	out, err := json.Marshal(env)
	require.Nil(t, err)
	return out
}

// commitState is one step of buildChain: the target file contents and the
// signer(s) of the root role for that step, letting tests express a key
// rotation partway through a chain.
type commitState struct {
	rootVersion     int64
	targetsVersion  int64
	targetContents  []byte
	rootSigners     []testSigner
	targetsSigners  []testSigner
}

// buildChain commits one TUF state per entry in steps, each as a child of
// the previous, and returns the resulting commit IDs oldest first.
func buildChain(t *testing.T, repo *gitinterface.Repository, steps []commitState) []gitinterface.Hash {
	t.Helper()

	var commits []gitinterface.Hash
	var parent gitinterface.Hash
	hasParent := false

	for _, step := range steps {
		root := tuf.NewRootMetadata()
		root.SetVersion(step.rootVersion)
		for _, s := range step.rootSigners {
			require.Nil(t, root.AddRootKey(s.key))
			require.Nil(t, root.AddTargetsKey(s.key))
			require.Nil(t, root.AddSnapshotKey(s.key))
			require.Nil(t, root.AddTimestampKey(s.key))
		}

		topLevel := tuf.NewTargetsMetadata()
		topLevel.SetVersion(step.targetsVersion)
		topLevel.Targets = map[string]any{"repositories.json": tuf.TargetFileInfo{
			Length: int64(len(step.targetContents)),
			Hashes: map[string]string{"sha256": sha256Hex(step.targetContents)},
		}}

		snapshot := tuf.NewSnapshotMetadata()
		snapshot.SetVersion(step.targetsVersion)
		snapshot.AddRoleVersion(tuf.TargetsRoleName, step.targetsVersion)
		// The store serves this role's committed envelope bytes verbatim, so
		// the timestamp must record the hash/length of those exact bytes
		// rather than of a re-serialization of the signed portion alone.
		snapshotEnvelopeBytes := encodeSigned(t, snapshot, step.targetsSigners...)

		timestamp := tuf.NewTimestampMetadata()
		timestamp.SetVersion(step.targetsVersion)
		timestamp.SetSnapshot(step.targetsVersion, int64(len(snapshotEnvelopeBytes)), map[string]string{"sha256": sha256Hex(snapshotEnvelopeBytes)})

		rootBlobID, err := repo.WriteBlob(encodeSigned(t, root, step.rootSigners...))
		require.Nil(t, err)
		targetsBlobID, err := repo.WriteBlob(encodeSigned(t, topLevel, step.targetsSigners...))
		require.Nil(t, err)
		snapshotBlobID, err := repo.WriteBlob(snapshotEnvelopeBytes)
		require.Nil(t, err)
		timestampBlobID, err := repo.WriteBlob(encodeSigned(t, timestamp, step.targetsSigners...))
		require.Nil(t, err)
		targetBlobID, err := repo.WriteBlob(step.targetContents)
		require.Nil(t, err)

		treeBuilder := gitinterface.NewTreeBuilder(repo)
		treeID, err := treeBuilder.WriteTreeFromEntries([]gitinterface.TreeEntry{
			gitinterface.NewEntryBlob("metadata/root.json", rootBlobID),
			gitinterface.NewEntryBlob("metadata/targets.json", targetsBlobID),
			gitinterface.NewEntryBlob("metadata/snapshot.json", snapshotBlobID),
			gitinterface.NewEntryBlob("metadata/timestamp.json", timestampBlobID),
			gitinterface.NewEntryBlob("targets/repositories.json", targetBlobID),
		})
		require.Nil(t, err)

		var parents []gitinterface.Hash
		if hasParent {
			parents = []gitinterface.Hash{parent}
		}
		commitID := commitTree(t, repo, treeID, parents)
		commits = append(commits, commitID)
		parent = commitID
		hasParent = true
	}

	return commits
}

func commitTree(t *testing.T, repo *gitinterface.Repository, treeID gitinterface.Hash, parents []gitinterface.Hash) gitinterface.Hash {
	t.Helper()

	args := []string{"--git-dir", repo.GetGitDir(), "commit-tree", "-m", "authchain test commit", treeID.String()}
	for _, p := range parents {
		args = append(args, "-p", p.String())
	}
	cmd := exec.Command("git", args...)
	cmd.Env = append(cmd.Env, "GIT_AUTHOR_NAME=Jane Doe", "GIT_AUTHOR_EMAIL=jane.doe@example.com",
		"GIT_COMMITTER_NAME=Jane Doe", "GIT_COMMITTER_EMAIL=jane.doe@example.com")
	output, err := cmd.Output()
	require.Nil(t, err)

	commitID, err := gitinterface.NewHash(string(output[:40]))
	require.Nil(t, err)
	return commitID
}

func TestWalkFromScratch(t *testing.T) {
	signer := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	commits := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		{rootVersion: 1, targetsVersion: 2, targetContents: []byte("v2"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		{rootVersion: 1, targetsVersion: 3, targetContents: []byte("v3"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})

	result, err := Walk(context.Background(), repo, commits[2], Options{})
	require.Nil(t, err)
	assert.Nil(t, result.FirstBadErr)
	assert.Equal(t, commits[2].String(), result.LastGoodCommit.String())
	require.Len(t, result.AuthenticatedCommits, 3)
	assert.Equal(t, commits[0].String(), result.AuthenticatedCommits[0].String())
}

func TestWalkResumesFromLastValidatedCommit(t *testing.T) {
	signer := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	commits := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		{rootVersion: 1, targetsVersion: 2, targetContents: []byte("v2"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		{rootVersion: 1, targetsVersion: 3, targetContents: []byte("v3"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})

	lvc := commits[1]
	result, err := Walk(context.Background(), repo, commits[2], Options{LastValidatedCommit: &lvc})
	require.Nil(t, err)
	assert.Nil(t, result.FirstBadErr)
	assert.Equal(t, commits[2].String(), result.LastGoodCommit.String())
	// Only the commit after the LVC was actually walked/authenticated this run.
	require.Len(t, result.AuthenticatedCommits, 1)
	assert.Equal(t, commits[2].String(), result.AuthenticatedCommits[0].String())
}

func TestWalkStopsAtBrokenTransition(t *testing.T) {
	signer := newTestSigner(t)
	intruder := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	commits := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		// Root silently replaced by an unauthorized key: no double-threshold
		// signature from the outgoing key, so this transition must fail.
		{rootVersion: 2, targetsVersion: 2, targetContents: []byte("v2"), rootSigners: []testSigner{intruder}, targetsSigners: []testSigner{intruder}},
		{rootVersion: 2, targetsVersion: 3, targetContents: []byte("v3"), rootSigners: []testSigner{intruder}, targetsSigners: []testSigner{intruder}},
	})

	result, err := Walk(context.Background(), repo, commits[2], Options{})
	require.Nil(t, err)
	require.NotNil(t, result.FirstBadCommit)
	assert.Equal(t, commits[1].String(), result.FirstBadCommit.String())
	assert.ErrorIs(t, result.FirstBadErr, tufverify.ErrThresholdUnmet)
	assert.Equal(t, commits[0].String(), result.LastGoodCommit.String())
	assert.Len(t, result.AuthenticatedCommits, 1)
}

func TestWalkPinnedFirstCommitMismatch(t *testing.T) {
	signer := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	commits := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})

	wrongPin := gitinterface.ZeroHash
	_, err := Walk(context.Background(), repo, commits[0], Options{PinnedFirstCommit: &wrongPin})
	assert.ErrorIs(t, err, tufverify.ErrOutOfBandMismatch)
}

func TestWalkLastValidatedCommitUnreachable(t *testing.T) {
	signer := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	mainline := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})
	orphan := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("orphan"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})

	lvc := orphan[0]
	_, err := Walk(context.Background(), repo, mainline[0], Options{LastValidatedCommit: &lvc})
	assert.ErrorIs(t, err, ErrLVCUnreachable)
}

func TestWalkCooperativeCancellation(t *testing.T) {
	signer := newTestSigner(t)
	repo := gitinterface.CreateTestGitRepository(t, t.TempDir(), true)

	commits := buildChain(t, repo, []commitState{
		{rootVersion: 1, targetsVersion: 1, targetContents: []byte("v1"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
		{rootVersion: 1, targetsVersion: 2, targetContents: []byte("v2"), rootSigners: []testSigner{signer}, targetsSigners: []testSigner{signer}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Walk(ctx, repo, commits[1], Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, result)
}
