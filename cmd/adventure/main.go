package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	adventurecmd "github.com/torchlit/engine/internal/cmd/adventure"
)

// main runs a terminal play session for one adventure package.
func main() {
	cfg, err := adventurecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[ADVENTURE] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adventurecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to run adventure: %v", err)
	}
}
