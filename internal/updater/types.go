// SPDX-License-Identifier: Apache-2.0

// Package updater is the pipeline orchestrator: it ties the Git worker,
// metadata store, TUF verifier, auth-chain walker, target comparator,
// dependency recursor and LVC persistence layer into the three
// operations an invoker actually calls: Clone, Update and Validate.
package updater

import (
	"github.com/openlawlibrary/taf/internal/dependency"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/handler"
)

// ExpectedType is the invocation-surface expected_type parameter. The
// special files examined (repositories.json, mirrors.json,
// dependencies.json, protected/info.json) carry no repository-type field,
// so the core pipeline accepts and threads this value through for
// forward compatibility but does not itself gate on it; see DESIGN.md.
type ExpectedType string

const (
	ExpectedTypeEither   ExpectedType = "either"
	ExpectedTypeTest     ExpectedType = "test"
	ExpectedTypeOfficial ExpectedType = "official"
)

// Options configures a single pipeline run, whether invoked directly by
// Clone/Update/Validate or recursively for a dependency.
type Options struct {
	// Namespace and Name identify the authentication repository, e.g.
	// "acme" and "root" for library layout acme/root.
	Namespace string
	Name      string

	// AuthRepoURL is used to seed MirrorURLs when the caller has no
	// mirrors.json-derived list yet (top-level Clone invocations).
	AuthRepoURL string
	MirrorURLs  []string

	// Branch is the authentication repository's branch. Defaults to
	// "main".
	Branch string

	// LibraryRoot is the root directory target and dependency
	// repositories are laid out under, one directory per
	// namespace/name.
	LibraryRoot string

	// ConfDirRoot is the root directory last-validated-commit files and
	// locks are kept under, separate from the library so a read-only
	// library checkout doesn't need write access for those.
	ConfDirRoot string

	ExpectedType ExpectedType

	// Strict escalates Warnings-class findings (MetadataExpired,
	// UnknownCustomField) to fatal errors instead of tolerating them. No
	// check in the pipeline raises a Warnings-class finding, so Strict
	// does not change the outcome of a run.
	Strict bool

	// ExcludeTargetGlobs excludes matching "<ns>/<name>" target
	// repository entries from comparison and advancement entirely, as
	// if they weren't listed in repositories.json.
	ExcludeTargetGlobs []string

	// OutOfBandFirstCommit pins the authentication repository's first
	// commit, either supplied directly by the invoker or propagated
	// down from a parent's dependencies.json entry.
	OutOfBandFirstCommit *gitinterface.Hash

	// MaxConcurrentFetch bounds how many dependency authentication
	// repositories are processed at once during recursion (a value <= 0
	// uses the default of 4). Target repositories are fetched one at a
	// time.
	MaxConcurrentFetch int

	// Sink receives the event emitted at the end of the run. Defaults
	// to a NoopSink if nil.
	Sink handler.Sink

	// ValidateOnly skips advancing any working copy or the last
	// validated commit file: it reports what a real run would do
	// without changing any on-disk state.
	ValidateOnly bool

	// Force removes the existing working copies of the authentication
	// repository and of every advancing target repository just before
	// advancing, so local modifications in them are discarded and they
	// are re-created at the commit this run advances to, which becomes
	// the new last validated commit. It has no effect on a run that does
	// not advance, and it never suppresses authentication errors.
	Force bool

	// Visited tracks which authentication repositories have already
	// been (or are being) resolved in this invocation's dependency
	// graph. Created fresh by the top-level entrypoint; threaded down
	// unchanged to every recursive call so cycles and diamonds are
	// detected across the whole graph, not per subtree.
	Visited *dependency.Visited
}

// Result summarizes one pipeline run for the caller, independent of the
// Event dispatched to Options.Sink.
type Result struct {
	Outcome handler.Outcome
	Err     error
	EndAR   gitinterface.Hash
}
