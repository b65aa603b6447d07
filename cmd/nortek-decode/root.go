package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ocean.telemetry/internal/config"
	"github.com/banshee-data/ocean.telemetry/internal/fsutil"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/timeutil"
	"github.com/banshee-data/ocean.telemetry/internal/version"
)

// app carries what every subcommand shares.
type app struct {
	stdout, stderr io.Writer
	fsys           fsutil.FileSystem
	clock          timeutil.Clock

	configPath string
	logLevel   string
	cfg        *config.DecoderConfig
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		fsys:   fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
	}
}

// loadConfig reads --config, or uses defaults when it is empty.
func (a *app) loadConfig() error {
	if a.configPath == "" {
		a.cfg = config.EmptyDecoderConfig()
		return nil
	}
	cfg, err := config.LoadDecoderConfig(a.fsys, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) sessionOptions() session.Options {
	opts := session.OptionsFromConfig(a.cfg)
	opts.Clock = a.clock
	return opts
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "nortek-decode",
		Short: "Decode Nortek Aquadopp, AWAC and Vector telemetry",
		Long: `nortek-decode recovers frames from raw Nortek instrument recordings or a
live serial port, validates their checksums, decodes every known record type
and assembles the result into named, time-indexed channels.

Corrupt bytes are skipped by resynchronising on the next sync byte; the
per-file summary reports how many frames were accepted and why others were
dropped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(a.logLevel, a.stderr); err != nil {
				return err
			}
			return a.loadConfig()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "decoder configuration JSON file ("+config.DefaultConfigPath+" holds the defaults)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "ops", "log streams to stderr: none, ops, diag or trace")

	root.AddCommand(newDecodeCmd(a), newSerialCmd(a), newRecordsCmd(a), newVersionCmd(a))
	return root
}

// execute runs the root command and prints any error. Cobra's own error
// printing is silenced so errors are reported once.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return err
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}
