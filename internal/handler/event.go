// SPDX-License-Identifier: Apache-2.0

// Package handler defines the event record the Updater emits after every
// pipeline run, and the Sink abstraction that keeps post-update
// script execution entirely outside the verification core (spec.md §9
// "Handler execution").
package handler

// Outcome is the terminal classification of one pipeline run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
	OutcomeCompleted Outcome = "completed"
)

// AuthRepoCommits records an AR's HEAD movement across one pipeline run.
type AuthRepoCommits struct {
	BeforePull string   `json:"before_pull"`
	New        []string `json:"new"`
	AfterPull  string   `json:"after_pull"`
}

// AuthRepo is the event's auth_repo field.
type AuthRepo struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	URLs    []string        `json:"urls"`
	Commits AuthRepoCommits `json:"commits"`
}

// BranchCommits records one target repository branch's movement,
// including any unauthenticated commits a lenient TR tolerated.
type BranchCommits struct {
	BeforePull      string   `json:"before_pull"`
	AfterPull       string   `json:"after_pull"`
	New             []string `json:"new"`
	Unauthenticated []string `json:"unauthenticated"`
}

// TargetRepo is one entry of the event's target_repos map.
type TargetRepo struct {
	CommitsByBranch map[string]BranchCommits `json:"commits_by_branch"`
}

// Event is the stable record spec.md §6 names, emitted once per pipeline
// run regardless of outcome.
type Event struct {
	Event       Outcome               `json:"event"`
	AuthRepo    AuthRepo              `json:"auth_repo"`
	TargetRepos map[string]TargetRepo `json:"target_repos"`
	ErrorMsg    string                `json:"error_msg,omitempty"`
}
