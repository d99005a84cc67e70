// Package main is the entry point for the room viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/app"
	"github.com/Faultbox/roomview/internal/config"
	"github.com/Faultbox/roomview/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.Dump(path, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			return 1
		}
		return 0
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("=== roomview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := app.New(cfg, logger.Log)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		return 1
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		return 1
	}

	logger.Info("viewer closed normally")
	return 0
}
