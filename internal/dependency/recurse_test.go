// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurseInvokesEveryDependency(t *testing.T) {
	deps := metadata.DependenciesJSON{Dependencies: map[string]metadata.DependencyEntry{
		"acme/widgets": {},
		"acme/gadgets": {},
	}}

	var mu sync.Mutex
	seen := map[string]bool{}
	run := func(_ context.Context, full FullName, path string, urls []string, pin *gitinterface.Hash) error {
		mu.Lock()
		defer mu.Unlock()
		seen[full.String()] = true
		assert.Equal(t, "/lib/acme/"+full.Name, path)
		return nil
	}

	outcomes := Recurse(context.Background(), deps, "/lib", []string{"https://example.com/{org_name}/{repo_name}.git"}, 4, NewVisited(), run)

	require.Len(t, outcomes, 2)
	assert.True(t, seen["acme/widgets"])
	assert.True(t, seen["acme/gadgets"])
	for _, o := range outcomes {
		assert.Nil(t, o.Err)
		assert.False(t, o.Skipped)
	}
}

func TestRecursePropagatesPinnedFirstCommit(t *testing.T) {
	pinHex := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	deps := metadata.DependenciesJSON{Dependencies: map[string]metadata.DependencyEntry{
		"acme/widgets": {OutOfBandAuthentication: pinHex},
	}}

	var gotPin *gitinterface.Hash
	run := func(_ context.Context, full FullName, path string, urls []string, pin *gitinterface.Hash) error {
		gotPin = pin
		return nil
	}

	Recurse(context.Background(), deps, "/lib", nil, 1, NewVisited(), run)

	require.NotNil(t, gotPin)
	assert.Equal(t, pinHex, gotPin.String())
}

func TestRecurseSkipsAlreadyVisitedWithSamePin(t *testing.T) {
	deps := metadata.DependenciesJSON{Dependencies: map[string]metadata.DependencyEntry{
		"acme/widgets": {},
	}}

	visited := NewVisited()
	full := FullName{Namespace: "acme", Name: "widgets"}
	_, err := visited.Enter(full, nil)
	require.Nil(t, err)
	visited.Leave(full)

	called := false
	run := func(_ context.Context, full FullName, path string, urls []string, pin *gitinterface.Hash) error {
		called = true
		return nil
	}

	outcomes := Recurse(context.Background(), deps, "/lib", nil, 1, visited, run)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.False(t, called)
}

func TestRecurseReportsPinConflictWithoutFailingSiblings(t *testing.T) {
	deps := metadata.DependenciesJSON{Dependencies: map[string]metadata.DependencyEntry{
		"acme/widgets": {OutOfBandAuthentication: "1111111111111111111111111111111111111111"},
		"acme/gadgets": {},
	}}

	visited := NewVisited()
	conflicting, err := gitinterface.NewHash("2222222222222222222222222222222222222222")
	require.Nil(t, err)
	_, err = visited.Enter(FullName{Namespace: "acme", Name: "widgets"}, &conflicting)
	require.Nil(t, err)

	run := func(_ context.Context, full FullName, path string, urls []string, pin *gitinterface.Hash) error {
		return nil
	}

	outcomes := Recurse(context.Background(), deps, "/lib", nil, 2, visited, run)
	require.Len(t, outcomes, 2)

	var sawConflict, sawGadgetsOK bool
	for _, o := range outcomes {
		if o.Full.String() == "acme/widgets" {
			sawConflict = errors.Is(o.Err, ErrPinConflict)
		}
		if o.Full.String() == "acme/gadgets" {
			sawGadgetsOK = o.Err == nil
		}
	}
	assert.True(t, sawConflict)
	assert.True(t, sawGadgetsOK)
}

func TestRecurseContinuesAfterSubtreeFailure(t *testing.T) {
	deps := metadata.DependenciesJSON{Dependencies: map[string]metadata.DependencyEntry{
		"acme/widgets": {},
		"acme/gadgets": {},
	}}

	run := func(_ context.Context, full FullName, path string, urls []string, pin *gitinterface.Hash) error {
		if full.Name == "widgets" {
			return errors.New("boom")
		}
		return nil
	}

	outcomes := Recurse(context.Background(), deps, "/lib", nil, 2, NewVisited(), run)
	require.Len(t, outcomes, 2)

	var widgetsFailed, gadgetsOK bool
	for _, o := range outcomes {
		if o.Full.Name == "widgets" {
			widgetsFailed = o.Err != nil
		}
		if o.Full.Name == "gadgets" {
			gadgetsOK = o.Err == nil
		}
	}
	assert.True(t, widgetsFailed)
	assert.True(t, gadgetsOK)
}
