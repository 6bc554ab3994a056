package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sdgwater/internal/app"
	"sdgwater/internal/config"
)

// Set at build time with -ldflags
var (
	Version   = config.AppVersion
	BuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "YAML config file (defaults to $SDG_CONFIG_FILE)")
	inputDir := flag.String("dir", "", "directory holding the survey datasets")
	outputDir := flag.String("out", "", "directory for the output files")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", config.AppName, Version, BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.Paths.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Paths.OutputDir = *outputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := app.Run(ctx, cfg, app.Options{}); err != nil {
		slog.Error("Pipeline failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
