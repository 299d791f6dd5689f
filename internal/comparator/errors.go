// SPDX-License-Identifier: Apache-2.0

package comparator

import "errors"

// Sentinel errors for the Network and Target-chain error classes this
// package is responsible for.
var (
	ErrFetchError                 = errors.New("unable to fetch target repository")
	ErrTargetMismatch             = errors.New("target repository commit sequence does not match authorized sequence")
	ErrMissingAuthorizedCommit    = errors.New("an authorized commit is missing from the target repository's actual history")
	ErrUnexpectedAuthorizedCommit = errors.New("target repository history contains a commit not permitted by any authorization")

	// ErrDivergentHistory is the Local-state-class error raised when a
	// target repository's last-known-good commit is not an ancestor of its
	// current branch head: the remote has been rewritten underneath it.
	ErrDivergentHistory = errors.New("target repository history has diverged from its last known good commit")
)
