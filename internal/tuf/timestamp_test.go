// SPDX-License-Identifier: Apache-2.0

package tuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestampMetadata(t *testing.T) {
	timestamp := NewTimestampMetadata()
	assert.Equal(t, "timestamp", timestamp.Type)

	timestamp.SetVersion(5)
	assert.Equal(t, int64(5), timestamp.Version)

	_, ok := timestamp.SnapshotInfo()
	assert.False(t, ok)

	timestamp.SetSnapshot(4, 1024, map[string]string{"sha256": "abc123"})

	info, ok := timestamp.SnapshotInfo()
	assert.True(t, ok)
	assert.Equal(t, int64(4), info.Version)
	assert.Equal(t, int64(1024), info.Length)
	assert.Equal(t, "abc123", info.Hashes["sha256"])
}
