// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTestGitRepository(t *testing.T) {
	tmpDir := t.TempDir()
	repo := CreateTestGitRepository(t, tmpDir, false)

	assert.NotEmpty(t, repo.GetGitDir())
	assert.False(t, repo.IsBare())
}

func TestCreateTestGitRepositoryBare(t *testing.T) {
	tmpDir := t.TempDir()
	repo := CreateTestGitRepository(t, tmpDir, true)

	assert.Equal(t, tmpDir, repo.GetGitDir())
	assert.True(t, repo.IsBare())
}
