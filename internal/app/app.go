// Package app builds the catalog service and its collaborators from config.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"jamesfarrell.me/invideo-search/internal/catalog"
	"jamesfarrell.me/invideo-search/internal/config"
	"jamesfarrell.me/invideo-search/internal/embeddings"
	"jamesfarrell.me/invideo-search/internal/inflight"
	"jamesfarrell.me/invideo-search/internal/storage/db"
	"jamesfarrell.me/invideo-search/internal/storage/memory"
	"jamesfarrell.me/invideo-search/internal/storage/postgres"
	"jamesfarrell.me/invideo-search/internal/transcript"
	"jamesfarrell.me/invideo-search/internal/youtube"
)

type App struct {
	Service *catalog.Service
	// YouTube is exposed so commands can swap the transcript source.
	YouTube *youtube.Client

	closers []io.Closer
}

// Option adjusts the dependencies before the service is built.
type Option func(*catalog.Deps)

// WithTranscripts replaces the yt-dlp transcript source.
func WithTranscripts(src catalog.TranscriptSource) Option {
	return func(d *catalog.Deps) { d.Transcripts = src }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder, err := embeddings.NewOpenAI(embeddings.Config{
		APIKey:     cfg.Embeddings.APIKey,
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	a.YouTube = youtube.NewClient(
		youtube.NewYtDlp(cfg.YtDlp.Path, cfg.YtDlp.Timeout),
		&http.Client{Timeout: 30 * time.Second},
	)

	deps := catalog.Deps{
		Store:       store,
		Embedder:    embedder,
		Metadata:    a.YouTube,
		Transcripts: a.YouTube,
		Windowing: transcript.Windowing{
			Window:  cfg.Segments.Window,
			Overlap: cfg.Segments.Overlap,
		},
	}

	if cfg.Redis.Addr != "" {
		locker, err := inflight.ConnectRedis(ctx, inflight.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, locker)
		deps.Locker = locker
		log.Printf("Using Redis at %s for processing locks", cfg.Redis.Addr)
	}

	for _, opt := range opts {
		opt(&deps)
	}

	svc, err := catalog.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	switch cfg.Store {
	case "memory":
		log.Println("Using in-memory store; nothing will survive a restart")
		return memory.NewStore(), nil
	case "postgres":
		database, err := db.NewConnection(ctx, db.Config{URL: cfg.Database.URL})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, database)
		return postgres.NewStore(database, cfg.Embeddings.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
