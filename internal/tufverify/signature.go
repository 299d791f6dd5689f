// SPDX-License-Identifier: Apache-2.0

// Package tufverify implements the TUF Verifier (C3): the component that
// decides whether one Git commit's worth of role metadata is a legitimate
// continuation of the previous commit's. Every role is canonical-JSON TUF
// metadata through and through — there's no DSSE envelope here, since
// DSSE's payload-type wrapping is built for in-toto attestations, a concept
// this signing scheme has no use for.
package tufverify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/openlawlibrary/taf/internal/signerverifier/gpg"
	"github.com/openlawlibrary/taf/internal/signerverifier/ssh"
	"github.com/openlawlibrary/taf/internal/tuf"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
)

// encodeCanonicalSigned re-derives the exact canonical-JSON bytes a role
// was signed over from its already-serialized "signed" field. Re-decoding
// into a generic value before re-encoding means the result is identical
// regardless of the key order or whitespace the bytes happened to be
// stored with on disk.
func encodeCanonicalSigned(signed json.RawMessage) ([]byte, error) {
	var value any
	if err := json.Unmarshal(signed, &value); err != nil {
		return nil, err
	}
	return cjson.EncodeCanonical(value)
}

// SignedEnvelope is the wire format every TUF role is transported in:
// the role's own canonical-JSON bytes under "signed", plus one or more
// signatures over those bytes.
type SignedEnvelope struct {
	Signed     json.RawMessage `json:"signed"`
	Signatures []Signature     `json:"signatures"`
}

// Signature pairs a key ID with the signature it produced over Signed.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"`
}

// dataVerifier is satisfied by every concrete key-type verifier
// (ssh.Verifier, gpg.Verifier) used below. All of them are
// Verify(ctx, data, sig []byte) error against raw bytes, not a DSSE
// envelope, so canonical-JSON bytes can be handed to them directly.
type dataVerifier interface {
	Verify(ctx context.Context, data []byte, sig []byte) error
}

// verifierForKey resolves the dataVerifier implementation for key's type.
// ssh and gpg keys are TAF's primary, current signing mechanism;
// signerverifier.NewVerifierFromSSLibKey covers the legacy SSLib-format
// RSA/ECDSA/ed25519 cases (metadata signed before a repository adopted
// ssh/gpg signing), dispatching across those three itself.
func verifierForKey(key *tuf.Key) (dataVerifier, error) {
	switch key.KeyType {
	case ssh.KeyType:
		return ssh.NewVerifierFromKey(key)
	case gpg.KeyType:
		return gpg.NewVerifierFromKey(key)
	default:
		sv, err := signerverifier.NewVerifierFromSSLibKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedAlgorithm, key.KeyType, key.Scheme)
		}
		return sv, nil
	}
}

// decodeSignature recovers the raw signature bytes a Signature.Sig field
// carries. SSLib-style RSA/ECDSA/ed25519 signatures are hex-encoded per TUF
// convention; ssh and gpg signatures are stored as their own armored-text
// output verbatim, which is already safe ASCII for a JSON string. Hex
// decoding is tried first since a successful decode is unambiguous; a
// failure falls back to treating the field as raw bytes.
func decodeSignature(sig string) []byte {
	if decoded, err := hex.DecodeString(sig); err == nil {
		return decoded
	}
	return []byte(sig)
}

// CountValidSignatures returns how many distinct keys among keys produced a
// valid signature in env over env.Signed, encoded canonically. Keys not
// present in env's signatures, or whose signature doesn't verify, are
// silently skipped. Callers compare the result against a role's threshold.
func CountValidSignatures(ctx context.Context, env *SignedEnvelope, keys []*tuf.Key) (int, error) {
	canonical, err := encodeCanonicalSigned(env.Signed)
	if err != nil {
		return 0, err
	}

	sigsByKeyID := make(map[string]string, len(env.Signatures))
	for _, sig := range env.Signatures {
		sigsByKeyID[sig.KeyID] = sig.Sig
	}

	verified := 0
	for _, key := range keys {
		sigField, ok := sigsByKeyID[key.KeyID]
		if !ok {
			continue
		}

		verifier, err := verifierForKey(key)
		if err != nil {
			return 0, err
		}

		if err := verifier.Verify(ctx, canonical, decodeSignature(sigField)); err == nil {
			verified++
		}
	}

	return verified, nil
}
