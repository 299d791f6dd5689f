// SPDX-License-Identifier: Apache-2.0

package tuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotMetadata(t *testing.T) {
	snapshot := NewSnapshotMetadata()
	assert.Equal(t, "snapshot", snapshot.Type)

	snapshot.SetVersion(3)
	assert.Equal(t, int64(3), snapshot.Version)

	d := time.Date(1995, time.October, 26, 9, 0, 0, 0, time.UTC)
	snapshot.SetExpires(d.Format(time.RFC3339))
	assert.Equal(t, "1995-10-26T09:00:00Z", snapshot.Expires)

	snapshot.AddRoleVersion(RootRoleName, 1)
	snapshot.AddRoleVersion(TargetsRoleName, 2)

	version, ok := snapshot.VersionFor(TargetsRoleName)
	assert.True(t, ok)
	assert.Equal(t, int64(2), version)

	_, ok = snapshot.VersionFor("delegated-role")
	assert.False(t, ok)

	snapshot.AddRoleVersion(TargetsRoleName, 3)
	version, ok = snapshot.VersionFor(TargetsRoleName)
	assert.True(t, ok)
	assert.Equal(t, int64(3), version)
}
