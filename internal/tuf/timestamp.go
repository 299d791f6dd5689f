// SPDX-License-Identifier: Apache-2.0

package tuf

// TimestampFileInfo records the version, length, and hashes of the Snapshot
// role as observed by the Timestamp role's author.
type TimestampFileInfo struct {
	Version int64             `json:"version"`
	Length  int64             `json:"length"`
	Hashes  map[string]string `json:"hashes"`
}

// TimestampMetadata defines the schema of TUF's Timestamp role: a single
// entry describing the current Snapshot role. It is the freshest role in a
// commit's metadata bundle and the one the Verifier checks first, since an
// inconsistency here invalidates every other role's version claims.
type TimestampMetadata struct {
	Type    string                       `json:"type"`
	Version int64                        `json:"version"`
	Expires string                       `json:"expires"`
	Meta    map[string]TimestampFileInfo `json:"meta"`
}

// NewTimestampMetadata returns a new instance of TimestampMetadata.
func NewTimestampMetadata() *TimestampMetadata {
	return &TimestampMetadata{
		Type: "timestamp",
		Meta: map[string]TimestampFileInfo{},
	}
}

// SetVersion sets the version of the TimestampMetadata instance.
func (ts *TimestampMetadata) SetVersion(version int64) {
	ts.Version = version
}

// SetExpires sets the expiry date of the TimestampMetadata to the value
// passed in.
func (ts *TimestampMetadata) SetExpires(expires string) {
	ts.Expires = expires
}

// SetSnapshot records the snapshot role's (version, length, hashes) triple
// this timestamp vouches for.
func (ts *TimestampMetadata) SetSnapshot(version, length int64, hashes map[string]string) {
	if ts.Meta == nil {
		ts.Meta = map[string]TimestampFileInfo{}
	}
	ts.Meta[SnapshotRoleName] = TimestampFileInfo{
		Version: version,
		Length:  length,
		Hashes:  hashes,
	}
}

// SnapshotInfo returns the recorded snapshot file info, and whether one is
// present at all.
func (ts *TimestampMetadata) SnapshotInfo() (TimestampFileInfo, bool) {
	info, ok := ts.Meta[SnapshotRoleName]
	return info, ok
}
