// Command nortek-decode decodes Nortek instrument recordings and live serial
// streams into named, time-indexed channels.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
