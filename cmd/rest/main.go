package main

import (
	"context"
	"log"

	"assessment-sync-be/internal/bootstrap"
	"assessment-sync-be/internal/config"
	"assessment-sync-be/internal/server"
	"assessment-sync-be/internal/tracer"
	"assessment-sync-be/pkg/database"
)

func main() {
	// Initialize OpenTelemetry tracer (before everything else)
	shutdownTracer := tracer.InitTracer()
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	container := bootstrap.NewContainer(cfg, db)
	defer container.Logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Change pipeline: listener feeds the bus, the fan-out drains it.
	go func() {
		if err := container.Notifier.Run(ctx); err != nil && ctx.Err() == nil {
			container.Logger.Error("Main", "Change listener stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	go func() {
		if err := container.ChangeFanout.Consume(ctx); err != nil && ctx.Err() == nil {
			container.Logger.Error("Main", "Change fan-out stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	srv := server.New(cfg, container)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
