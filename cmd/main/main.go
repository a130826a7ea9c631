package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	ofext "ofext/main"
)

func main() {
	// init
	m := ofext.NewMain()

	// run until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := m.Run(ctx)

	// teardown
	stop()
	if err != nil {
		os.Exit(1)
	}
}
