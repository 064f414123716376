package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chaptertrim/config"
	"chaptertrim/internal/logging"
	"chaptertrim/internal/termui"
	"chaptertrim/trimmer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var flags *config.Flags

	rootCmd := &cobra.Command{
		Use:   "chaptertrim [flags] CHAPTER_FILE VIDEO_FILE",
		Short: "Cut chapters out of a video, or split it per chapter",
		Long: `chaptertrim reads a chapter file of "H:MM:SS.mmm Title" lines and removes
every chapter whose title starts with the exclude prefix ("--" by default).
The kept segments are extracted in parallel with ffmpeg, merged, and a
chapter file matching the new timeline is written next to the output.

With --split every non-excluded chapter becomes its own file instead.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags, args)
			if err != nil {
				return err
			}
			return runTrimmer(cmd.Context(), cfg, stdin, stdout, stderr)
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags = config.RegisterFlags(rootCmd.Flags())
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// runTrimmer wires logging, signals and the terminal to one trimmer run.
func runTrimmer(parent context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel(),
		Format: cfg.LogFormat,
		Output: stderr,
		Color:  termui.IsTerminal(stderr),
	})
	if err != nil {
		return err
	}

	if cfg.Verbose {
		fmt.Fprintln(stdout, cfg.PrintConfig())
	}

	t := trimmer.New(trimmer.Options{
		Config:      cfg,
		Logger:      logger,
		Out:         stdout,
		In:          stdin,
		Interactive: termui.IsTerminal(stdin),
		Progress:    termui.IsTerminal(stdout) && !cfg.Quiet,
		Color:       termui.IsTerminal(stdout),
	})

	summary, err := t.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "Interrupted.")
			return context.Canceled
		}
		return err
	}
	if summary.Declined {
		return nil
	}
	logger.Info("done", "output", summary.Output, "elapsed", summary.Elapsed.Round(time.Millisecond).String())
	return nil
}
