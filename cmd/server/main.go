package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fleet_allocator/internal/archiver"
	"fleet_allocator/internal/cache"
	"fleet_allocator/internal/config"
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/logger"
	"fleet_allocator/internal/middleware"
	"fleet_allocator/internal/routes"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// Optional snapshot cache in front of the fleet map read
	controllers.SetFleetCache(cache.NewFleetCache(
		config.GetEnv("REDIS_ADDR", ""),
		config.GetEnv("REDIS_PASSWORD", ""),
		5*time.Second,
	))

	// Setup Gin router
	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	server := &http.Server{
		Addr:    "0.0.0.0:" + config.GetEnv("PORT", "8080"),
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("🚀 Server running at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweeper := archiver.New(config.GetDB(), 5*time.Minute)
		err := sweeper.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
