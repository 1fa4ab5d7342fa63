package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/twinlyai/bot-backend/internal/builder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := builder.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bot-backend: startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bot-backend: %v\n", err)
		stop()
		os.Exit(1)
	}
}
