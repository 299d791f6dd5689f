// SPDX-License-Identifier: Apache-2.0

// Package tuf defines TAF's take on TUF metadata: root, targets, snapshot,
// timestamp, and delegated-targets roles, plus the canonical signed-metadata
// envelope they are all transported in.
package tuf

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/openlawlibrary/taf/internal/common/set"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/secure-systems-lab/go-securesystemslib/signerverifier"
)

var (
	ErrTargetsNotEmpty     = errors.New("`targets` field in delegating Targets metadata must be empty")
	ErrRootKeyNil          = errors.New("root key is nil")
	ErrTargetsKeyNil       = errors.New("targets key is nil")
	ErrSnapshotKeyNil      = errors.New("snapshot key is nil")
	ErrTimestampKeyNil     = errors.New("timestamp key is nil")
	ErrKeyIDEmpty          = errors.New("key ID is empty")
	ErrCannotMeetThreshold = errors.New("removing key will drop the role below its threshold")
	ErrRootMetadataNil     = errors.New("root metadata has no role entry for root")
	ErrTargetsMetadataNil  = errors.New("root metadata has no role entry for targets")

	ErrCannotManipulateAllowRule = errors.New("the allow rule cannot be modified directly")
	ErrDuplicatedRuleName        = errors.New("rule name appears more than once")
	ErrRuleNotFound              = errors.New("rule not found in current delegations")
	ErrMissingRules              = errors.New("rule not specified in the reordered list")
)

// Key defines the structure for how public keys are stored in TUF metadata.
type Key = signerverifier.SSLibKey

// LoadKeyFromBytes returns a pointer to a Key instance created from the
// contents of the bytes. The key contents are expected to be PEM encoded, or,
// for compatibility with older securesystemslib-style fixtures, a raw JSON
// serialization of the key.
func LoadKeyFromBytes(contents []byte) (*Key, error) {
	key, err := signerverifier.LoadKey(contents)
	if err == nil {
		return key, nil
	}

	if err := json.Unmarshal(contents, &key); err != nil {
		return nil, err
	}

	if len(key.KeyID) == 0 {
		keyID, err := CalculateKeyID(key)
		if err != nil {
			return nil, err
		}
		key.KeyID = keyID
	}

	return key, nil
}

// CalculateKeyID computes a key's ID as the hex SHA-256 digest of its
// canonical-JSON-encoded public portion, matching TUF's standard key ID
// derivation.
func CalculateKeyID(k *Key) (string, error) {
	key := map[string]any{
		"keytype":               k.KeyType,
		"scheme":                k.Scheme,
		"keyid_hash_algorithms": k.KeyIDHashAlgorithms,
		"keyval": map[string]string{
			"public": k.KeyVal.Public,
		},
	}
	canonical, err := cjson.EncodeCanonical(key)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// Role records common characteristics recorded in a role entry in Root
// metadata and in a delegation entry: the set of keys authorized to sign for
// the role, and the threshold of signatures required.
type Role struct {
	KeyIDs    *set.Set[string] `json:"keyids"`
	Threshold int              `json:"threshold"`
}

// RoleName is the map key type root and targets metadata use to record role
// entries. It's an alias rather than a distinct type so role names can be
// used directly as map[string]Role / map[string]*Key keys.
type RoleName = string

const (
	RootRoleName      RoleName = "root"
	TargetsRoleName   RoleName = "targets"
	SnapshotRoleName  RoleName = "snapshot"
	TimestampRoleName RoleName = "timestamp"
)
