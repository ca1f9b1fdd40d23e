package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd, err := cli.Parse(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "budget: error: %v\n", err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.NewContext(ctx, logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "budget: error: %v\n", err)
		return 1
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Debug("Failed to initialize backend", log.FieldBackend, backendCfg.Type.String(), log.FieldError, err)
		fmt.Fprintf(os.Stderr, "budget: error: %v\n", err)
		return 1
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	if err := cli.Execute(ctx, cmd, result.Service, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "budget: error: %v\n", err)
		return 1
	}
	return 0
}
