// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package update implements the 'update' CLI command: re-run the pipeline
// against an authentication repository that already has a local working
// copy and, typically, a last-validated-commit on disk.
package update

import (
	"fmt"

	"github.com/openlawlibrary/taf/internal/dependency"
	"github.com/openlawlibrary/taf/internal/handler"
	"github.com/openlawlibrary/taf/internal/updater"
	"github.com/spf13/cobra"
)

type options struct {
	libraryDir         string
	confDir            string
	excludeTargetGlobs []string
	strict             bool
	force              bool
	maxConcurrentFetch int
	handlerCommand     string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&o.libraryDir,
		"library-dir",
		"",
		"root directory target and dependency repositories are laid out under (required)",
	)

	cmd.Flags().StringVar(
		&o.confDir,
		"conf-dir",
		"",
		"root directory last-validated-commit state is kept under (defaults to library-dir)",
	)

	cmd.Flags().StringSliceVar(
		&o.excludeTargetGlobs,
		"exclude-target-globs",
		nil,
		"glob patterns of '<namespace>/<name>' target repositories to exclude",
	)

	cmd.Flags().BoolVar(
		&o.strict,
		"strict",
		false,
		"escalate warnings (expired metadata, unknown custom fields) to fatal errors; no check raises such warnings, so this changes no outcome",
	)

	cmd.Flags().BoolVar(
		&o.force,
		"force",
		false,
		"discard local working copy state (dirty trees, diverged HEADs) and reset to the outcome of this run",
	)

	cmd.Flags().IntVar(
		&o.maxConcurrentFetch,
		"max-concurrent-fetch",
		0,
		"bound how many dependency repositories are processed at once (0 = default); target repositories are fetched one at a time",
	)

	cmd.Flags().StringVar(
		&o.handlerCommand,
		"handler",
		"",
		"post-update handler command invoked with the event as JSON on stdin",
	)
}

func (o *options) Run(cmd *cobra.Command, args []string) error {
	full, err := dependency.ParseFullName(args[0])
	if err != nil {
		return fmt.Errorf("expected first argument of the form <namespace>/<name>: %w", err)
	}

	libraryDir := o.libraryDir
	if libraryDir == "" {
		return fmt.Errorf("--library-dir is required")
	}

	confDir := o.confDir
	if confDir == "" {
		confDir = libraryDir
	}

	opts := updater.Options{
		Namespace:          full.Namespace,
		Name:               full.Name,
		LibraryRoot:        libraryDir,
		ConfDirRoot:        confDir,
		ExcludeTargetGlobs: o.excludeTargetGlobs,
		Strict:             o.strict,
		Force:              o.force,
		MaxConcurrentFetch: o.maxConcurrentFetch,
		Sink:               sink(o.handlerCommand),
		Visited:            dependency.NewVisited(),
	}

	result, err := updater.Update(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return result.Err
}

func sink(handlerCommand string) handler.Sink {
	if handlerCommand == "" {
		return handler.NewNoopSink()
	}
	return handler.NewProcessSink(handlerCommand)
}

func New() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:               "update <namespace>/<name>",
		Short:             "Update a previously cloned authentication repository and its target repositories",
		Long:              `The 'update' command fetches the latest state of an authentication repository, validates it forward from the last validated commit, and advances local working copies and the last-validated-commit pointer only after validation succeeds.`,
		Args:              cobra.ExactArgs(1),
		RunE:              o.Run,
		DisableAutoGenTag: true,
	}
	o.AddFlags(cmd)

	return cmd
}
