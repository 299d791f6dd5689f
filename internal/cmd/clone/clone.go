// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"fmt"

	"github.com/openlawlibrary/taf/internal/dependency"
	"github.com/openlawlibrary/taf/internal/gitinterface"
	"github.com/openlawlibrary/taf/internal/handler"
	"github.com/openlawlibrary/taf/internal/updater"
	"github.com/spf13/cobra"
)

type options struct {
	branch             string
	expectedType       string
	excludeTargetGlobs []string
	strict             bool
	outOfBand          string
	fromFS             bool
	confDir            string
	handlerCommand     string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(
		&o.branch,
		"branch",
		"b",
		"main",
		"authentication repository branch to track",
	)

	cmd.Flags().StringVar(
		&o.expectedType,
		"expected-type",
		"either",
		"expected repository type (test, official, either)",
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
		&o.outOfBand,
		"out-of-band",
		"",
		"out-of-band commit id the authentication repository's first commit must equal",
	)

	cmd.Flags().BoolVar(
		&o.fromFS,
		"from-fs",
		false,
		"treat auth-repo-url as a local filesystem path rather than a remote URL",
	)

	cmd.Flags().StringVar(
		&o.confDir,
		"conf-dir",
		"",
		"root directory last-validated-commit state is kept under (defaults to library-dir)",
	)

	cmd.Flags().StringVar(
		&o.handlerCommand,
		"handler",
		"",
		"post-update handler command invoked with the event as JSON on stdin",
	)
}

func (o *options) Run(cmd *cobra.Command, args []string) error {
	authRepoURL := args[0]
	libraryDir := args[1]

	full, err := dependency.ParseFullName(args[2])
	if err != nil {
		return fmt.Errorf("expected third argument of the form <namespace>/<name>: %w", err)
	}

	confDir := o.confDir
	if confDir == "" {
		confDir = libraryDir
	}

	opts := updater.Options{
		Namespace:          full.Namespace,
		Name:               full.Name,
		Branch:             o.branch,
		LibraryRoot:        libraryDir,
		ConfDirRoot:        confDir,
		ExpectedType:       updater.ExpectedType(o.expectedType),
		Strict:             o.strict,
		ExcludeTargetGlobs: o.excludeTargetGlobs,
		Sink:               sink(o.handlerCommand),
		Visited:            dependency.NewVisited(),
	}

	if o.fromFS {
		opts.MirrorURLs = []string{authRepoURL}
	} else {
		opts.AuthRepoURL = authRepoURL
	}

	if o.outOfBand != "" {
		oob, err := gitinterface.NewHash(o.outOfBand)
		if err != nil {
			return fmt.Errorf("invalid out-of-band commit id: %w", err)
		}
		opts.OutOfBandFirstCommit = &oob
	}

	result, err := updater.Clone(cmd.Context(), opts)
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
		Use:               "clone <auth-repo-url> <library-dir> <namespace>/<name>",
		Short:             "Clone an authentication repository and its target repositories",
		Long:              `The 'clone' command fetches an authentication repository, validates its entire commit chain as a sequence of TUF states, validates every target repository's history against the commits it authorizes, and only then checks out local working copies under library-dir.`,
		Args:              cobra.ExactArgs(3),
		RunE:              o.Run,
		DisableAutoGenTag: true,
	}
	o.AddFlags(cmd)

	return cmd
}
