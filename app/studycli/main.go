package main

import (
	"context"
	"os"

	"github.com/yoockh/studybuddy/config"
	"github.com/yoockh/studybuddy/internal/app"
	"github.com/yoockh/studybuddy/internal/cli"
	"github.com/yoockh/studybuddy/internal/logger"
)

func open(ctx context.Context) (*cli.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// stdout belongs to the answers
	log := logger.NewWithOutput(os.Stderr, cfg.LogLevel)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &cli.Backend{Chat: a.Chat, Store: a.Store, Close: a.Close}, nil
}

func main() {
	os.Exit(cli.Run(context.Background(), open, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
