package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ocean.telemetry/internal/fsutil"
)

// Sink persists finished sessions.
type Sink interface {
	WriteSession(ctx context.Context, res *Result) error
}

// PoolOptions configures RunFiles.
type PoolOptions struct {
	Options
	// Workers bounds the number of files decoded at once; values below one
	// mean one.
	Workers int
	FS      fsutil.FileSystem
	// Sink, when set, receives every result, including partial ones.
	Sink Sink
}

// RunFiles decodes each path in its own session, at most Workers at a time.
// Results are returned in path order. A file that cannot be opened gets a
// Result with Err set and a nil Model. Per-file decode errors are reported in
// the results; the returned error is a sink failure or cancellation.
func RunFiles(ctx context.Context, paths []string, opts PoolOptions) ([]*Result, error) {
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &Result{Source: path, Err: err, Summary: Summary{Cancelled: true}}
				return nil
			}
			res := runFile(gctx, path, opts)
			results[i] = res
			if opts.Sink != nil && res.Model != nil {
				if err := opts.Sink.WriteSession(gctx, res); err != nil {
					return fmt.Errorf("store %s: %w", path, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func runFile(ctx context.Context, path string, opts PoolOptions) *Result {
	f, err := opts.FS.Open(path)
	if err != nil {
		opsf("open %s: %v", path, err)
		return &Result{Source: path, Err: err, Summary: Summary{FatalError: err.Error()}}
	}
	defer f.Close()

	res, _ := Decode(ctx, path, f, opts.Options)
	return res
}

// Failed reports whether a result should fail a batch run: the file could not
// be opened, or it ended truncated before any frame was accepted.
func (r *Result) Failed() bool {
	if r.Model == nil {
		return true
	}
	return r.Summary.Truncated && r.Summary.FramesAccepted == 0
}
