package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/igolaizola/sonicforge/pkg/cli"
	"github.com/joho/godotenv"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Load variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("couldn't load .env file: %v\n", err)
	}

	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Launch command
	cmd := cli.New(version, commit, date)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
