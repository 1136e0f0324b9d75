package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/arklim/social-platform-authkit/internal/infra/app"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
	"github.com/arklim/social-platform-authkit/internal/infra/prompt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompter := prompt.NewTerminal(os.Stdin, os.Stdout)

	application, err := app.New(ctx, cfg, prompter, nil)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Printf("session daemon stopped: %v", err)
		os.Exit(1)
	}
}
