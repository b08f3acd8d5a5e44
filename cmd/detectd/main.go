package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"screen-guide/internal/config"
	"screen-guide/internal/di"
	"screen-guide/internal/infrastructure/env"
	"screen-guide/internal/infrastructure/httpserver"
	"screen-guide/internal/infrastructure/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(env.NewEnvService())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logCfg := logger.DefaultConfig("detectd")
	logCfg.Dir = cfg.Log.Dir
	logCfg.Level = cfg.Log.Level
	logCfg.Console = true
	lg, err := logger.NewLoggerAdapter(logCfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	det := di.NewLocalDetector()
	router := httpserver.NewDetectRouter(det, version, httpserver.NewRequestLogger("detectd", cfg.Log.Level))

	lg.Info("Detection service starting", "addr", cfg.Detection.ServiceAddr, "detector", det.Name(), "version", version)
	if err := httpserver.Run(ctx, cfg.Detection.ServiceAddr, router, lg); err != nil {
		lg.Error("Detection service failed", "error", err)
		os.Exit(1)
	}
}
