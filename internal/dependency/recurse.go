// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/openlawlibrary/taf/internal/comparator"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/metadata"
)

// RunFunc invokes the full pipeline recursively against one dependency AR.
// path is its expected on-disk location and mirrorURLs are its resolved
// clone/fetch candidates; pinnedFirstCommit is nil when the parent's
// dependencies.json entry carries no out-of-band-authentication pin.
type RunFunc func(ctx context.Context, full FullName, path string, mirrorURLs []string, pinnedFirstCommit *gitinterface.Hash) error

// Outcome is one dependency entry's recursion result.
type Outcome struct {
	Full    FullName
	Skipped bool // a finished diamond: already visited via another path with a matching pin
	Err     error
}

// Recurse walks one AR commit's dependencies.json, invoking run for every
// entry not already visited, per spec.md §4.6. Siblings run with bounded
// parallelism (maxConcurrent; <=0 means unbounded); failure in one subtree
// does not prevent others from running, matching "failure in a subtree
// marks the subtree failed but does not roll back already-advanced
// siblings' local copies."
func Recurse(ctx context.Context, deps metadata.DependenciesJSON, libraryRoot string, mirrorTemplates []string, maxConcurrent int, visited *Visited, run RunFunc) []Outcome {
	names := make([]string, 0, len(deps.Dependencies))
	for name := range deps.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	tasks := make([]func() Outcome, len(names))
	for i, name := range names {
		name := name
		entry := deps.Dependencies[name]
		tasks[i] = func() Outcome {
			return recurseOne(ctx, name, entry, libraryRoot, mirrorTemplates, visited, run)
		}
	}

	return comparator.RunBounded(tasks, maxConcurrent)
}

func recurseOne(ctx context.Context, name string, entry metadata.DependencyEntry, libraryRoot string, mirrorTemplates []string, visited *Visited, run RunFunc) Outcome {
	full, err := ParseFullName(name)
	if err != nil {
		return Outcome{Err: err}
	}

	var pin *gitinterface.Hash
	if entry.OutOfBandAuthentication != "" {
		h, err := gitinterface.NewHash(entry.OutOfBandAuthentication)
		if err != nil {
			return Outcome{Full: full, Err: fmt.Errorf("parsing pinned first commit for %s: %w", full, err)}
		}
		pin = &h
	}

	first, err := visited.Enter(full, pin)
	if err != nil {
		return Outcome{Full: full, Err: err}
	}
	if !first {
		slog.Debug("dependency already visited, skipping", "name", full.String())
		return Outcome{Full: full, Skipped: true}
	}
	defer visited.Leave(full)

	path := ExpectedPath(libraryRoot, full)
	urls := comparator.ResolveURLs(mirrorTemplates, full.Namespace, full.Name)

	if err := run(ctx, full, path, urls, pin); err != nil {
		return Outcome{Full: full, Err: fmt.Errorf("dependency %s: %w", full, err)}
	}
	return Outcome{Full: full}
}
