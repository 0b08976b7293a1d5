package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/noahxzhu/tiffin-client/internal/cmd"
)

func main() {
	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
