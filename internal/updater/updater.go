// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openlawlibrary/taf/internal/authchain"
	"github.com/openlawlibrary/taf/internal/comparator"
	"github.com/openlawlibrary/taf/internal/dependency"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/handler"
	"github.com/openlawlibrary/taf/internal/lvc"
	"github.com/openlawlibrary/taf/internal/metadata"
	"github.com/openlawlibrary/taf/internal/metadatastore"
)

// Clone runs the pipeline against an authentication repository with no
// prior local state: there must be no last validated commit on disk yet.
func Clone(ctx context.Context, opts Options) (*Result, error) {
	return run(ctx, opts)
}

// Update runs the pipeline against an authentication repository that may
// already have a local copy and a last validated commit. If neither
// exists yet, Update behaves like Clone.
func Update(ctx context.Context, opts Options) (*Result, error) {
	return run(ctx, opts)
}

// Validate runs the pipeline without changing any on-disk state: no
// working copy is checked out, no last validated commit file is written,
// and handlers are never invoked.
func Validate(ctx context.Context, opts Options) (*Result, error) {
	opts.ValidateOnly = true
	opts.Sink = handler.NewNoopSink()
	return run(ctx, opts)
}

func run(ctx context.Context, opts Options) (*Result, error) {
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}
	sink := opts.Sink
	if sink == nil {
		sink = handler.NewNoopSink()
	}

	arPath := filepath.Join(opts.LibraryRoot, opts.Namespace, opts.Name)
	mirrorURLs := opts.MirrorURLs
	if len(mirrorURLs) == 0 {
		if opts.AuthRepoURL == "" {
			return failResult(nil, ErrNoAuthRepoSource), dispatchFailure(sink, opts, ErrNoAuthRepoSource)
		}
		mirrorURLs = []string{opts.AuthRepoURL}
	}

	scratchDir, err := os.MkdirTemp("", "taf-scratch-*")
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}
	defer os.RemoveAll(scratchDir)

	bareDir := filepath.Join(scratchDir, "ar.git")
	bareRepo, err := comparator.FetchWithFallback(mirrorURLs, bareDir, []string{gitinterface.BranchRefPrefix + branch})
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	remoteHead, err := bareRepo.GetReference(gitinterface.BranchRefPrefix + branch)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	lvcCommit, hasLVC, err := lvc.Read(opts.ConfDirRoot, opts.Namespace, opts.Name)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}
	var lastValidated *gitinterface.Hash
	if hasLVC {
		lastValidated = &lvcCommit
	}

	walkResult, err := authchain.Walk(ctx, bareRepo, remoteHead, authchain.Options{
		PinnedFirstCommit:   opts.OutOfBandFirstCommit,
		LastValidatedCommit: lastValidated,
	})
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	beforePull := gitinterface.ZeroHash
	if hasLVC {
		beforePull = lvcCommit
	}

	views, err := buildViews(bareRepo, walkResult.AuthenticatedCommits)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	latestCommit := beforePull
	if len(views) > 0 {
		latestCommit = views[len(views)-1].Commit
	}
	if latestCommit.IsZero() {
		// Nothing authenticated and no prior LVC: an empty or wholly
		// unauthenticatable repository. authchain.Walk reports the
		// latter as a FirstBadErr on the very first commit, which is
		// a failure; with no walkResult error there is genuinely
		// nothing to do.
		if walkResult.FirstBadErr != nil {
			return failResult(nil, walkResult.FirstBadErr), dispatchFailure(sink, opts, walkResult.FirstBadErr)
		}
		outcome := handler.OutcomeUnchanged
		event := buildEvent(outcome, opts, arPath, mirrorURLs, beforePull, beforePull, nil, nil, "")
		_ = sink.Dispatch(event)
		return &Result{Outcome: outcome, EndAR: beforePull}, nil
	}

	latestStore, err := metadatastore.NewGitReader(bareRepo, latestCommit)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	repositoriesJSON, err := readRepositories(latestStore)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}
	mirrorsJSON, err := readMirrors(latestStore)
	if err != nil {
		return failResult(nil, err), dispatchFailure(sink, opts, err)
	}

	trNames := filterExcluded(sortedKeys(repositoriesJSON.Repositories), opts.ExcludeTargetGlobs)

	var compareOutcome *comparator.Outcome
	branchEvents := map[string]handler.TargetRepo{}
	targetRepos := map[string]*preparedTarget{}

	if len(trNames) > 0 {
		targetRepos, err = prepareTargetRepos(views, trNames, mirrorsJSON.Mirrors, scratchDir, opts.LibraryRoot)
		if err != nil {
			return failResult(nil, err), dispatchFailure(sink, opts, err)
		}

		repos := make([]comparator.TargetRepo, 0, len(trNames))
		for _, name := range trNames {
			pt := targetRepos[name]
			if pt == nil {
				continue
			}
			repos = append(repos, comparator.TargetRepo{
				Name:    name,
				Repo:    pt.repo,
				Lenient: repositoriesJSON.Repositories[name].AllowsUnauthenticatedCommits(),
			})
		}

		compareOutcome, err = comparator.Compare(views, repos)
		if err != nil {
			return failResult(nil, err), dispatchFailure(sink, opts, err)
		}
	}

	endAR := latestCommit
	var pipelineErr error
	if walkResult.FirstBadErr != nil {
		pipelineErr = walkResult.FirstBadErr
		endAR = walkResult.LastGoodCommit
	}
	if compareOutcome != nil {
		for _, br := range compareOutcome.Branches {
			branchEvents[br.TR] = recordBranchCommits(branchEvents[br.TR], targetRepos[br.TR], br)
		}
		if compareOutcome.FirstFailure != nil && pipelineErr == nil {
			pipelineErr = compareOutcome.FirstFailure.Result.Err
		}
		if compareOutcome.HasLastCommon {
			// LastCommonARCommit was computed only over views, which
			// already stop at walkResult.LastGoodCommit, so it is
			// never later than the bound set above.
			endAR = compareOutcome.LastCommonARCommit
		} else if len(trNames) > 0 {
			// no TR is simultaneously valid anywhere in the newly
			// authenticated range: nothing new to advance to.
			endAR = beforePull
		}
	}

	outcome := handler.OutcomeSucceeded
	if pipelineErr != nil {
		outcome = handler.OutcomeFailed
	} else if endAR == beforePull {
		outcome = handler.OutcomeUnchanged
	} else {
		outcome = handler.OutcomeChanged
	}

	if !opts.ValidateOnly && !endAR.IsZero() && endAR != beforePull {
		endARStore, serr := metadatastore.NewGitReader(bareRepo, endAR)
		if serr != nil {
			pipelineErr = serr
			outcome = handler.OutcomeFailed
		} else if err := advance(opts, arPath, bareRepo, endAR, trNames, targetRepos, endARStore); err != nil {
			pipelineErr = err
			outcome = handler.OutcomeFailed
		}
	}

	var depOutcomes []dependency.Outcome
	if !opts.ValidateOnly && pipelineErr == nil && !endAR.IsZero() && endAR != beforePull {
		endStore, serr := metadatastore.NewGitReader(bareRepo, endAR)
		if serr == nil {
			depsJSON, derr := readDependencies(endStore)
			if derr == nil && len(depsJSON.Dependencies) > 0 {
				visited := opts.Visited
				if visited == nil {
					visited = dependency.NewVisited()
				}
				runFunc := childRunFunc(opts, sink)
				depOutcomes = dependency.Recurse(ctx, depsJSON, opts.LibraryRoot, mirrorsJSON.Mirrors, maxConcurrent(opts), visited, runFunc)
				for _, do := range depOutcomes {
					if do.Err != nil {
						slog.Warn("dependency failed", "name", do.Full.String(), "error", do.Err)
					}
				}
			}
		}
	}

	afterPull := endAR
	event := buildEvent(outcome, opts, arPath, mirrorURLs, beforePull, afterPull, walkResult.AuthenticatedCommits, branchEvents, errMsg(pipelineErr))
	if err := sink.Dispatch(event); err != nil {
		slog.Warn("handler dispatch failed", "error", err)
	}

	return &Result{Outcome: outcome, Err: pipelineErr, EndAR: endAR}, nil
}

type preparedTarget struct {
	repo       *gitinterface.Repository
	beforePull map[string]gitinterface.Hash // branch -> local HEAD before this run, zero if no local copy yet
}

func buildViews(bareRepo *gitinterface.Repository, commits []gitinterface.Hash) ([]comparator.ARCommitView, error) {
	views := make([]comparator.ARCommitView, 0, len(commits))
	for _, c := range commits {
		reader, err := metadatastore.NewGitReader(bareRepo, c)
		if err != nil {
			return nil, fmt.Errorf("opening metadata store at %s: %w", c, err)
		}
		views = append(views, comparator.ARCommitView{Commit: c, Store: reader})
	}
	return views, nil
}

func readRepositories(store metadatastore.Reader) (metadata.RepositoriesJSON, error) {
	var out metadata.RepositoriesJSON
	raw, err := store.ReadTarget("repositories.json")
	if errors.Is(err, metadatastore.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("reading repositories.json: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parsing repositories.json: %w", err)
	}
	return out, nil
}

func readMirrors(store metadatastore.Reader) (metadata.MirrorsJSON, error) {
	var out metadata.MirrorsJSON
	raw, err := store.ReadTarget("mirrors.json")
	if errors.Is(err, metadatastore.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("reading mirrors.json: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parsing mirrors.json: %w", err)
	}
	return out, nil
}

func readDependencies(store metadatastore.Reader) (metadata.DependenciesJSON, error) {
	var out metadata.DependenciesJSON
	raw, err := store.ReadTarget("dependencies.json")
	if errors.Is(err, metadatastore.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("reading dependencies.json: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parsing dependencies.json: %w", err)
	}
	return out, nil
}

// sortedKeys returns repositoriesJSON's keys in lexical order. The schema
// represents the repository set as a JSON object, which carries no
// member-order guarantee, so "lowest-indexed repository" is taken to mean
// lexical order on its name for determinism across runs and parsers.
func sortedKeys(m map[string]metadata.RepositoryEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func filterExcluded(names []string, globs []string) []string {
	if len(globs) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		excluded := false
		for _, g := range globs {
			if ok, _ := path.Match(g, name); ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, name)
		}
	}
	return out
}

func prepareTargetRepos(views []comparator.ARCommitView, trNames []string, mirrorTemplates []string, scratchDir string, libraryRoot string) (map[string]*preparedTarget, error) {
	out := make(map[string]*preparedTarget, len(trNames))
	for _, name := range trNames {
		entries, err := comparator.CollectAuthorizedEntries(views, name)
		if err != nil {
			return nil, fmt.Errorf("collecting authorized entries for %s: %w", name, err)
		}
		if len(entries) == 0 {
			continue
		}
		sequences := comparator.ExpectedSequences(entries)
		refs := make([]string, 0, len(sequences))
		for branch := range sequences {
			refs = append(refs, gitinterface.BranchRefPrefix+branch)
		}
		sort.Strings(refs)

		ns, trName, err := splitFullName(name)
		if err != nil {
			return nil, err
		}

		beforePull := localBranchHeads(filepath.Join(libraryRoot, ns, trName), refs)

		urls := comparator.ResolveURLs(mirrorTemplates, ns, trName)
		dir := filepath.Join(scratchDir, "tr", sanitize(name))
		repo, err := comparator.FetchWithFallback(urls, dir, refs)
		if err != nil {
			return nil, fmt.Errorf("fetching target repository %s: %w", name, err)
		}
		out[name] = &preparedTarget{repo: repo, beforePull: beforePull}
	}
	return out, nil
}

// localBranchHeads reads the current HEAD of every branch ref in refs from
// an already-materialized local working copy at path, if one exists. A
// branch absent locally (fresh clone, or newly introduced) maps to
// gitinterface.ZeroHash.
func localBranchHeads(workDir string, refs []string) map[string]gitinterface.Hash {
	out := make(map[string]gitinterface.Hash, len(refs))
	repo, err := gitinterface.LoadRepository(workDir)
	if err != nil {
		for _, ref := range refs {
			out[strings.TrimPrefix(ref, gitinterface.BranchRefPrefix)] = gitinterface.ZeroHash
		}
		return out
	}
	for _, ref := range refs {
		branch := strings.TrimPrefix(ref, gitinterface.BranchRefPrefix)
		head, err := repo.GetReference(ref)
		if err != nil {
			head = gitinterface.ZeroHash
		}
		out[branch] = head
	}
	return out
}

func splitFullName(name string) (namespace, repo string, err error) {
	full, err := dependency.ParseFullName(name)
	if err != nil {
		return "", "", err
	}
	return full.Namespace, full.Name, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

// recordBranchCommits fills in one branch's before/after/new commit list
// for the event record. Unauthenticated is left empty: attributing exactly
// which actual commits a lenient compare tolerated would require exposing
// compareLenient's internal match trace, which CompareResult doesn't carry
// today (see DESIGN.md).
func recordBranchCommits(event handler.TargetRepo, pt *preparedTarget, br comparator.BranchResult) handler.TargetRepo {
	if event.CommitsByBranch == nil {
		event.CommitsByBranch = map[string]handler.BranchCommits{}
	}
	if pt == nil {
		event.CommitsByBranch[br.Branch] = handler.BranchCommits{}
		return event
	}

	before := pt.beforePull[br.Branch]
	actual, err := comparator.ActualSequence(pt.repo, br.Branch, before)
	if err != nil {
		event.CommitsByBranch[br.Branch] = handler.BranchCommits{BeforePull: before.String()}
		return event
	}

	newStrs := make([]string, len(actual))
	after := before
	for i, c := range actual {
		newStrs[i] = c.String()
		after = c
	}

	event.CommitsByBranch[br.Branch] = handler.BranchCommits{
		BeforePull: before.String(),
		AfterPull:  after.String(),
		New:        newStrs,
	}
	return event
}

func advance(opts Options, arPath string, bareRepo *gitinterface.Repository, endAR gitinterface.Hash, trNames []string, targetRepos map[string]*preparedTarget, endStore metadatastore.Reader) error {
	trAdvances := make([]lvc.TRAdvance, 0, len(trNames))
	for _, name := range trNames {
		pt := targetRepos[name]
		if pt == nil {
			continue
		}
		raw, err := endStore.ReadTarget(name)
		if errors.Is(err, metadatastore.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading target commit for %s at %s: %w", name, endAR, err)
		}
		var tc metadata.TargetCommit
		if err := json.Unmarshal(raw, &tc); err != nil {
			return fmt.Errorf("parsing target commit for %s: %w", name, err)
		}
		commitID, err := gitinterface.NewHash(tc.Commit)
		if err != nil {
			return fmt.Errorf("parsing target commit hash for %s: %w", name, err)
		}
		ns, repoName, err := splitFullName(name)
		if err != nil {
			return err
		}
		trAdvances = append(trAdvances, lvc.TRAdvance{
			Namespace: ns,
			Name:      repoName,
			BareRepo:  pt.repo,
			WorkDir:   filepath.Join(opts.LibraryRoot, ns, repoName),
			Commit:    commitID,
		})
	}

	if opts.Force {
		_ = os.RemoveAll(arPath)
		for _, tr := range trAdvances {
			_ = os.RemoveAll(tr.WorkDir)
		}
	}

	if err := lvc.Advance(opts.ConfDirRoot, opts.Namespace, opts.Name, bareRepo, arPath, endAR, trAdvances); err != nil {
		return fmt.Errorf("%w: %v", ErrWorkingTreeDirty, err)
	}
	return nil
}

func childRunFunc(parent Options, sink handler.Sink) dependency.RunFunc {
	return func(ctx context.Context, full dependency.FullName, _ string, mirrorURLs []string, pinnedFirstCommit *gitinterface.Hash) error {
		child := parent
		child.Namespace = full.Namespace
		child.Name = full.Name
		child.MirrorURLs = mirrorURLs
		child.AuthRepoURL = ""
		child.OutOfBandFirstCommit = pinnedFirstCommit
		child.Sink = sink
		result, err := run(ctx, child)
		if err != nil {
			return err
		}
		return result.Err
	}
}

func maxConcurrent(opts Options) int {
	if opts.MaxConcurrentFetch > 0 {
		return opts.MaxConcurrentFetch
	}
	return 4
}

func failResult(endAR *gitinterface.Hash, err error) *Result {
	r := &Result{Outcome: handler.OutcomeFailed, Err: err}
	if endAR != nil {
		r.EndAR = *endAR
	}
	return r
}

func dispatchFailure(sink handler.Sink, opts Options, err error) error {
	event := handler.Event{
		Event: handler.OutcomeFailed,
		AuthRepo: handler.AuthRepo{
			Name: opts.Namespace + "/" + opts.Name,
		},
		ErrorMsg: errMsg(err),
	}
	_ = sink.Dispatch(event)
	return nil
}

func buildEvent(outcome handler.Outcome, opts Options, arPath string, mirrorURLs []string, beforePull, afterPull gitinterface.Hash, newCommits []gitinterface.Hash, branchEvents map[string]handler.TargetRepo, errMsg string) handler.Event {
	newStrs := make([]string, len(newCommits))
	for i, c := range newCommits {
		newStrs[i] = c.String()
	}
	return handler.Event{
		Event: outcome,
		AuthRepo: handler.AuthRepo{
			Name: opts.Namespace + "/" + opts.Name,
			Path: arPath,
			URLs: mirrorURLs,
			Commits: handler.AuthRepoCommits{
				BeforePull: beforePull.String(),
				New:        newStrs,
				AfterPull:  afterPull.String(),
			},
		},
		TargetRepos: branchEvents,
		ErrorMsg:    errMsg,
	}
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
