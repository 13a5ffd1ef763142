package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"jamesfarrell.me/invideo-search/internal/catalog"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

// Catalog is the part of catalog.Service the handlers use.
type Catalog interface {
	Process(ctx context.Context, rawURL string) (*models.Video, bool, error)
	Search(ctx context.Context, query, videoID string, limit int) ([]models.SearchResult, error)
	Segments(ctx context.Context, videoID string) ([]models.Segment, error)
	Recent(ctx context.Context, limit int) []models.Video
	VideoInfo(ctx context.Context, videoID string) *models.Video
}

type VideoHandler struct {
	catalog Catalog
}

func NewVideoHandler(c Catalog) *VideoHandler {
	return &VideoHandler{catalog: c}
}

func (h *VideoHandler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req models.VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	video, newly, err := h.catalog.Process(r.Context(), req.URL)
	if err != nil {
		log.Printf("Error processing video URL %q: %v", req.URL, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, models.ProcessResponse{Video: video, NewlyProcessed: newly})
}

func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.catalog.Search(r.Context(), query, q.Get("video_id"), limit)
	if err != nil {
		log.Printf("Error searching for query %q with video_id %q: %v", query, q.Get("video_id"), err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, results)
}

func (h *VideoHandler) Segments(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]

	segments, err := h.catalog.Segments(r.Context(), videoID)
	if err != nil {
		log.Printf("Error getting segments for video %s: %v", videoID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, segments)
}

func (h *VideoHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, h.catalog.Recent(r.Context(), limit))
}

func (h *VideoHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.catalog.VideoInfo(r.Context(), mux.Vars(r)["video_id"]))
}

// parseLimit returns 0 for an absent limit so the service applies its default.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrTranscriptUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrProcessingInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
