package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/ocean.telemetry/internal/serialmux"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/store"
	"github.com/banshee-data/ocean.telemetry/internal/telemetry/frame"
)

// setupLogging routes the ops, diag and trace streams of every package to w.
// Each level enables its stream and the ones above it.
func setupLogging(level string, w io.Writer) error {
	var ops, diag, trace io.Writer
	switch level {
	case "none":
	case "ops", "":
		ops = w
	case "diag":
		ops, diag = w, w
	case "trace":
		ops, diag, trace = w, w, w
	default:
		return fmt.Errorf("invalid log level %q: expected none, ops, diag or trace", level)
	}

	frame.SetLogWriters(ops, diag, trace)
	session.SetLogWriters(ops, diag, trace)
	store.SetLogWriters(ops, diag, trace)
	serialmux.SetLogWriters(ops, diag, trace)
	return nil
}
