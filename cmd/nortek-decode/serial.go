package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ocean.telemetry/internal/serialmux"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/store"
)

// wakePause separates the soft break from its confirmation.
var wakePause = 100 * time.Millisecond

// openPort opens the instrument port. Tests replace it.
var openPort serialmux.SerialPortOpener = serialmux.OpenPort

type liveOptions struct {
	port          string
	baud          int
	wake          bool
	statsInterval time.Duration
	storePath     string
	display       displayOptions
}

func newSerialCmd(a *app) *cobra.Command {
	var lo liveOptions

	cmd := &cobra.Command{
		Use:   "serial --port PATH",
		Short: "Decode a live instrument stream until interrupted",
		Long: `Serial opens the instrument port, optionally wakes the instrument and starts
a measurement, and decodes the stream until SIGINT or the port closes. Stream
statistics are logged to the diag stream every --stats-interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lo.port == "" {
				return errors.New("--port is required")
			}
			opts := a.cfg.GetSerial()
			if lo.baud > 0 {
				opts.BaudRate = lo.baud
			}
			port, err := openPort(lo.port, opts)
			if err != nil {
				return fmt.Errorf("open %s: %w", lo.port, err)
			}

			var sink session.Sink
			path := a.cfg.GetStorePath()
			if lo.storePath != "" {
				path = lo.storePath
			}
			if path != "" {
				st, err := store.Open(path)
				if err != nil {
					port.Close()
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
				st.Clock = a.clock
				sink = st
			}

			res, err := runLive(cmd.Context(), a, port, lo)
			if res != nil {
				printResult(a.stdout, res, lo.display)
				if sink != nil {
					if serr := sink.WriteSession(context.WithoutCancel(cmd.Context()), res); serr != nil {
						return fmt.Errorf("store: %w", serr)
					}
				}
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&lo.port, "port", "p", "", "serial port path, e.g. /dev/ttyUSB0")
	cmd.Flags().IntVar(&lo.baud, "baud", 0, "baud rate (default from config, else 9600)")
	cmd.Flags().BoolVar(&lo.wake, "wake", false, "send a soft break and start a measurement first")
	cmd.Flags().DurationVar(&lo.statsInterval, "stats-interval", 10*time.Second, "interval between stream statistics")
	cmd.Flags().StringVar(&lo.storePath, "store", "", "SQLite archive to write the session to")
	cmd.Flags().BoolVarP(&lo.display.verbose, "verbose", "v", false, "print attributes and the channel table")
	lo.display.speed = "mps"
	lo.display.timezone = "UTC"
	return cmd
}

// runLive decodes port until ctx is done or the port reports EOF. The port is
// closed on return.
func runLive(ctx context.Context, a *app, port serialmux.SerialPorter, lo liveOptions) (*session.Result, error) {
	mux := serialmux.NewSerialMux(port)
	defer mux.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the monitor starts so no bytes are missed.
	stream := mux.NewStreamReader(ctx)
	defer stream.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, serialmux.ErrClosed) {
			fmt.Fprintf(a.stderr, "serial monitor stopped: %v\n", err)
		}
	}()

	stop := func() {
		cancel()
		mux.Close()
		wg.Wait()
	}

	if lo.wake {
		err := mux.Wake(wakePause)
		if err == nil {
			err = mux.StartMeasurement()
		}
		if err != nil {
			stop()
			return nil, err
		}
	}

	opts := a.sessionOptions()
	progress := session.NewProgress(a.clock.Now())
	opts.Progress = progress

	if lo.statsInterval > 0 {
		ticker := a.clock.NewTicker(lo.statsInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C():
					progress.Log(a.clock.Now())
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	res, err := session.Decode(ctx, "serial:"+lo.port, stream, opts)
	stop()
	if dropped := mux.Dropped(); dropped > 0 {
		fmt.Fprintf(a.stderr, "%s: %d chunks dropped while the decoder was behind\n", lo.port, dropped)
	}
	return res, err
}
