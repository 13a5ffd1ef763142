package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"jamesfarrell.me/invideo-search/internal/api/handlers"
	"jamesfarrell.me/invideo-search/internal/api/middleware"
)

type RouterConfig struct {
	APIKey     string
	CORSOrigin string
}

func NewRouter(catalog handlers.Catalog, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.CORS(cfg.CORSOrigin))
	protected.Use(middleware.Auth(cfg.APIKey))

	videoHandler := handlers.NewVideoHandler(catalog)
	videos := protected.PathPrefix("/video").Subrouter()
	videos.Use(mux.CORSMethodMiddleware(videos))
	videos.Use(middleware.Preflight)
	videos.HandleFunc("/process", videoHandler.ProcessVideo).Methods(http.MethodPost, http.MethodOptions)
	videos.HandleFunc("/search", videoHandler.Search).Methods(http.MethodGet, http.MethodOptions)
	videos.HandleFunc("/segments/{video_id}", videoHandler.Segments).Methods(http.MethodGet, http.MethodOptions)
	videos.HandleFunc("/recent", videoHandler.Recent).Methods(http.MethodGet, http.MethodOptions)
	videos.HandleFunc("/info/{video_id}", videoHandler.Info).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
