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

	"github.com/joho/godotenv"
	"jamesfarrell.me/invideo-search/internal/api"
	"jamesfarrell.me/invideo-search/internal/app"
	"jamesfarrell.me/invideo-search/internal/config"
	"jamesfarrell.me/invideo-search/internal/notify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if cfg.HTTP.APIKey == "" {
		log.Println("SERVICE_API_KEY is not set; /api routes are unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	router := api.NewRouter(a.Service, api.RouterConfig{
		APIKey:     cfg.HTTP.APIKey,
		CORSOrigin: cfg.HTTP.CORSOrigin,
	})

	if cfg.Database.ListenChannel != "" {
		listener := notify.NewListener(cfg.Database.URL, cfg.Database.ListenChannel, a.Service)
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Printf("Notification listener stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// processing a long video embeds every segment inside the request
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting HTTP server on %s...", cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
	log.Println("HTTP server stopped")
}
