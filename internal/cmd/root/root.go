// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package root

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/openlawlibrary/taf/internal/cmd/clone"
	"github.com/openlawlibrary/taf/internal/cmd/profile"
	"github.com/openlawlibrary/taf/internal/cmd/update"
	"github.com/openlawlibrary/taf/internal/cmd/validate"
	"github.com/openlawlibrary/taf/internal/cmd/version"
	"github.com/openlawlibrary/taf/internal/display"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type options struct {
	noColor           bool
	verbose           bool
	profile           bool
	cpuProfileFile    string
	memoryProfileFile string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(
		&o.noColor,
		"no-color",
		false,
		"turn off colored output",
	)

	cmd.PersistentFlags().BoolVar(
		&o.verbose,
		"verbose",
		false,
		"enable verbose logging",
	)

	cmd.PersistentFlags().BoolVar(
		&o.profile,
		"profile",
		false,
		"enable CPU and memory profiling",
	)

	cmd.PersistentFlags().StringVar(
		&o.cpuProfileFile,
		"profile-CPU-file",
		"cpu.prof",
		"file to store CPU profile",
	)

	cmd.PersistentFlags().StringVar(
		&o.memoryProfileFile,
		"profile-memory-file",
		"memory.prof",
		"file to store memory profile",
	)
}

func (o *options) PreRunE(_ *cobra.Command, _ []string) error {
	// Check if colored output must be disabled
	output := os.Stdout
	isTerminal := isatty.IsTerminal(output.Fd()) || isatty.IsCygwinTerminal(output.Fd())
	if o.noColor || !isTerminal {
		display.DisableColor()
	} else if runtime.GOOS != "windows" {
		os.Setenv("PAGER", "less -R")
		os.Setenv("LESS", "-R")
	}

	// Setup logging
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	// Start profiling if flag is set
	if o.profile {
		return profile.StartProfiling(o.cpuProfileFile, o.memoryProfileFile)
	}

	return nil
}

func New() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:               "taf",
		Short:             "Git archival authentication, powered by TUF",
		Long:              `taf pairs a Git repository with a companion authentication repository whose every commit is a valid TUF state, so that clones and updates can be proven to only apply commits authorized by a threshold of offline signing keys. The CLI provides commands to clone, update and validate authenticated repositories.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: o.PreRunE,
	}

	o.AddFlags(cmd)

	cmd.AddCommand(clone.New())
	cmd.AddCommand(update.New())
	cmd.AddCommand(validate.New())
	cmd.AddCommand(version.New())

	return cmd
}
