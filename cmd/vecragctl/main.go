// Command vecragctl ingests and queries a vecrag index without the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/app"
	"github.com/kailas-cloud/vecrag/internal/config"
	logpkg "github.com/kailas-cloud/vecrag/internal/logger"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(openPipeline, os.Stdout)
	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openPipeline loads config/<env>.yaml, or configPath when set, and wires the pipeline.
func openPipeline(ctx context.Context, env, configPath string) (*app.App, func(), error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger("cli", cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	pipeline, err := app.New(ctx, cfg, logger.With(zap.String("config_env", env)))
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return pipeline, func() {
		pipeline.Close()
		_ = logger.Sync()
	}, nil
}
