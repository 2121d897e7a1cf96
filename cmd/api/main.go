package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/database"
	"github.com/emilythestrangee/campus-forum/backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, err := database.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	app := server.New(cfg, store)
	srv := app.HTTPServer()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go app.SweepLimiters(sweepCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Println("📝 Press Ctrl+C to stop the server")

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
