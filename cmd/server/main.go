package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"crossblades/server/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.FromEnv(log.Default())
	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
