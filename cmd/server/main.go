package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArenasTI/Flappy-Bird/internal/app"
	"github.com/ArenasTI/Flappy-Bird/internal/config"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())
	settings := config.Load(logger)

	if len(os.Args) > 1 {
		port, err := config.ParsePort(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "usage: %s [port]\ninvalid port %q: %v\n", os.Args[0], os.Args[1], err)
			os.Exit(2)
		}
		settings.UDPPort = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Settings: settings, Logger: logger}); err != nil {
		log.Fatalf("%v", err)
	}
}
