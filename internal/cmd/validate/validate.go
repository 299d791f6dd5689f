// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate implements the 'validate' CLI command: run the
// pipeline's verification steps without advancing any local working copy
// or the last-validated-commit file.
package validate

import (
	"fmt"

	"github.com/openlawlibrary/taf/internal/dependency"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/updater"
	"github.com/spf13/cobra"
)

type options struct {
	libraryDir         string
	confDir            string
	excludeTargetGlobs []string
	strict             bool
	fromCommit         string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&o.libraryDir,
		"library-dir",
		"",
		"root directory target and dependency repositories are laid out under",
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

	cmd.Flags().StringVar(
		&o.fromCommit,
		"from-commit",
		"",
		"out-of-band commit id the authentication repository's first commit must equal; validation still resumes from any persisted last-validated-commit",
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
		Visited:            dependency.NewVisited(),
	}

	if o.fromCommit != "" {
		commit, err := gitinterface.NewHash(o.fromCommit)
		if err != nil {
			return fmt.Errorf("invalid --from-commit commit id: %w", err)
		}
		opts.OutOfBandFirstCommit = &commit
	}

	result, err := updater.Validate(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return result.Err
}

func New() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:               "validate <namespace>/<name>",
		Short:             "Validate an authentication repository and its target repositories without advancing local state",
		Long:              `The 'validate' command runs the full verification pipeline against an authentication repository but skips advancing any working copy or the last-validated-commit file, reporting what a real clone or update would do.`,
		Args:              cobra.ExactArgs(1),
		RunE:              o.Run,
		DisableAutoGenTag: true,
	}
	o.AddFlags(cmd)

	return cmd
}
