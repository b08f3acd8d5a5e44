package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"screen-guide/internal/config"
	"screen-guide/internal/di"
	"screen-guide/internal/infrastructure/env"
	"screen-guide/internal/infrastructure/httpserver"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(env.NewEnvService())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer container.Close()

	task := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	container.Logger.Info("Guide started", "task", task, "capture", cfg.Capture.Mode, "llm", cfg.LLM.Provider)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.Loop.Run(gctx)
	})
	g.Go(func() error {
		return container.Sampler.Run(gctx)
	})
	if cfg.Server.Addr != "" {
		router := httpserver.NewStatusRouter(container.Guidance, container.Registry,
			httpserver.NewRequestLogger("guide", cfg.Log.Level))
		g.Go(func() error {
			return httpserver.Run(gctx, cfg.Server.Addr, router, container.Logger)
		})
	}
	g.Go(func() error {
		defer stop()
		return newSession(container).run(gctx, task)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		container.Logger.Error("Guide failed", "error", err)
		fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
		os.Exit(1)
	}
	container.Logger.Info("Guide stopped")
}
