package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/store"
	"github.com/banshee-data/ocean.telemetry/internal/units"
)

// errBatchFailed is returned when a file could not be opened or ended
// truncated before any frame was accepted.
var errBatchFailed = errors.New("one or more files could not be decoded")

func newDecodeCmd(a *app) *cobra.Command {
	var (
		workers   int
		storePath string
		display   displayOptions
	)

	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode recorded instrument files",
		Long: `Decode runs one session per file, several files at a time, and prints a
summary per file. With --verbose the instrument attributes and a channel table
are printed as well. With --store every session is archived in SQLite.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !units.IsValid(display.speed) {
				return fmt.Errorf("invalid --units %q: expected one of %s", display.speed, units.GetValidUnitsString())
			}
			if display.timezone != "" && display.timezone != "UTC" && !units.IsTimezoneValid(display.timezone) {
				return fmt.Errorf("invalid --tz %q", display.timezone)
			}

			pool := session.PoolOptions{
				Options: a.sessionOptions(),
				Workers: a.cfg.GetWorkers(),
				FS:      a.fsys,
			}
			if workers > 0 {
				pool.Workers = workers
			}

			path := a.cfg.GetStorePath()
			if storePath != "" {
				path = storePath
			}
			if path != "" {
				st, err := store.Open(path)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
				st.Clock = a.clock
				pool.Sink = st
			}

			results, err := session.RunFiles(cmd.Context(), args, pool)
			failed := false
			for _, res := range results {
				if res == nil {
					continue
				}
				printResult(a.stdout, res, display)
				if res.Failed() {
					failed = true
				}
			}
			if err != nil {
				return err
			}
			if failed {
				return errBatchFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "files decoded at once (default from config, else GOMAXPROCS)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite archive to write sessions to")
	cmd.Flags().BoolVarP(&display.verbose, "verbose", "v", false, "print attributes and the channel table")
	cmd.Flags().StringVar(&display.speed, "units", units.MPS, "velocity display units: "+units.GetValidUnitsString())
	cmd.Flags().StringVar(&display.timezone, "tz", "UTC", "timezone for displayed times")
	return cmd
}
