// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"fmt"
	"sync"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

type visitState int

const (
	stateInProgress visitState = iota
	stateDone
)

// Visited tracks the full names entered during one recursive dependency
// walk. It distinguishes a true cycle (an AR reached again while its own
// subtree is still recursing, which would otherwise recurse forever) from
// a harmless diamond (an AR reached a second time via a different path
// after its first traversal already finished) and detects conflicting
// pins on either kind of repeat visit. Sibling dependencies may recurse
// concurrently (see spec.md §5), so every method is safe for concurrent
// use.
type Visited struct {
	mu     sync.Mutex
	state  map[string]visitState
	pinned map[string]*gitinterface.Hash
}

func NewVisited() *Visited {
	return &Visited{state: map[string]visitState{}, pinned: map[string]*gitinterface.Hash{}}
}

// Enter records full as entered with the given pin (nil meaning
// unpinned). It returns (true, nil) the first time full is seen, meaning
// the caller must eventually call Leave once its subtree finishes.
// Afterward, a repeat visit with a differing pin is ErrPinConflict whether
// or not the first visit has finished; with a matching pin, a repeat visit
// while the first is still in progress is ErrCyclicDependency, and one
// after the first has finished is a diamond and returns (false, nil).
func (v *Visited) Enter(full FullName, pin *gitinterface.Hash) (first bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := full.String()
	state, seen := v.state[key]
	if !seen {
		v.state[key] = stateInProgress
		v.pinned[key] = pin
		return true, nil
	}

	if !samePin(v.pinned[key], pin) {
		return false, fmt.Errorf("%w: %s", ErrPinConflict, key)
	}
	if state == stateInProgress {
		return false, fmt.Errorf("%w: %s", ErrCyclicDependency, key)
	}
	return false, nil
}

// Leave marks full's subtree as finished, so a later diamond re-entry via
// another path is no longer mistaken for a cycle. Callers that received
// first == true from Enter must call Leave exactly once when the
// recursive call for full returns, regardless of outcome.
func (v *Visited) Leave(full FullName) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state[full.String()] = stateDone
}

func samePin(a, b *gitinterface.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
