// Package catalog turns video references into searchable transcript
// segments and answers queries over them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"jamesfarrell.me/invideo-search/internal/inflight"
	"jamesfarrell.me/invideo-search/internal/storage/models"
	"jamesfarrell.me/invideo-search/internal/transcript"
	"jamesfarrell.me/invideo-search/internal/youtube"
)

const (
	DefaultSearchLimit = 5
	DefaultRecentLimit = 10
	MaxLimit           = 100

	fallbackTitleRunes = 30
)

// Store persists segments and video records.
type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveSegment(ctx context.Context, seg models.Segment, embedding []float32) error
	SearchSegments(ctx context.Context, embedding []float32, videoID string, limit int) ([]models.SearchResult, error)
	ListSegments(ctx context.Context, videoID string) ([]models.Segment, error)
	SaveVideo(ctx context.Context, video models.Video, embedding []float32) error
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	RecentVideos(ctx context.Context, limit int) ([]models.Video, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type MetadataSource interface {
	FetchMetadata(ctx context.Context, videoID string) (models.Metadata, error)
}

type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) ([]transcript.RawEntry, error)
}

type Deps struct {
	Store       Store
	Embedder    Embedder
	Metadata    MetadataSource
	Transcripts TranscriptSource
	// Locker guards processing across instances. Optional.
	Locker    inflight.Locker
	Windowing transcript.Windowing
	Now       func() time.Time
}

type processResult struct {
	video *models.Video
	newly bool
}

type Service struct {
	store       Store
	embedder    Embedder
	metadata    MetadataSource
	transcripts TranscriptSource
	windowing   transcript.Windowing
	now         func() time.Time
	inflight    *inflight.Group[processResult]
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Embedder == nil || deps.Transcripts == nil {
		return nil, errors.New("catalog: store, embedder and transcript source are required")
	}
	w := deps.Windowing
	if w == (transcript.Windowing{}) {
		w = transcript.DefaultWindowing
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:       deps.Store,
		embedder:    deps.Embedder,
		metadata:    deps.Metadata,
		transcripts: deps.Transcripts,
		windowing:   w,
		now:         now,
		inflight:    inflight.NewGroup[processResult](deps.Locker),
	}, nil
}

// Process makes the video behind rawURL searchable. newlyProcessed is false
// when the video had already been processed, or when this call joined a run
// started by a concurrent caller.
func (s *Service) Process(ctx context.Context, rawURL string) (video *models.Video, newlyProcessed bool, err error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, shared, err := s.inflight.Do(ctx, videoID, func(ctx context.Context) (processResult, error) {
		return s.process(ctx, videoID)
	})
	if errors.Is(err, inflight.ErrLocked) {
		return nil, false, fmt.Errorf("%w: %s", ErrProcessingInProgress, videoID)
	}
	if err != nil {
		return nil, false, err
	}
	return res.video, res.newly && !shared, nil
}

func (s *Service) process(ctx context.Context, videoID string) (processResult, error) {
	existing, err := s.store.GetVideo(ctx, videoID)
	switch {
	case err == nil && existing.Processed:
		log.Printf("Video %s has already been processed, skipping", videoID)
		return processResult{video: existing}, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		log.Printf("Could not look up video %s, processing anyway: %v", videoID, err)
	}

	video := &models.Video{
		VideoID:   videoID,
		Title:     models.PlaceholderTitle(videoID),
		CreatedAt: s.now().Unix(),
	}
	if err := s.enrich(ctx, video); err != nil {
		log.Printf("Continuing without metadata: %v", err)
	}

	raw, err := s.transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		return processResult{}, fmt.Errorf("%w: %s: %v", ErrTranscriptUnavailable, videoID, err)
	}
	log.Printf("Fetched transcript for %s with %d entries", videoID, len(raw))

	entries, issues := transcript.Normalize(raw)
	for _, issue := range issues {
		log.Printf("Transcript %s: %v", videoID, issue)
	}

	if !video.HasRealTitle() && len(entries) > 0 {
		video.Title = fallbackTitle(entries[0].Text)
		log.Printf("Set title of %s from transcript: %q", videoID, video.Title)
	}

	segments := s.windowing.Segments(videoID, entries)
	log.Printf("Split %s into %d segments", videoID, len(segments))

	if err := s.store.EnsureSchema(ctx); err != nil {
		return processResult{}, fmt.Errorf("%w: ensure schema: %v", ErrPersistence, err)
	}

	stored := 0
	for _, seg := range segments {
		if err := s.storeSegment(ctx, seg); err != nil {
			log.Printf("Failed to store segment %s: %v", seg.SegmentID, err)
			continue
		}
		stored++
	}
	log.Printf("Stored %d/%d segments for %s", stored, len(segments), videoID)

	video.Processed = true
	if err := s.storeVideo(ctx, *video); err != nil {
		log.Printf("Failed to store processed video %s: %v", videoID, err)
	}
	return processResult{video: video, newly: true}, nil
}

// enrich applies best-effort metadata to the video.
func (s *Service) enrich(ctx context.Context, video *models.Video) error {
	if s.metadata == nil {
		return fmt.Errorf("%w: no metadata source", ErrMetadataUnavailable)
	}
	md, err := s.metadata.FetchMetadata(ctx, video.VideoID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, video.VideoID, err)
	}
	md.Apply(video)
	return nil
}

func (s *Service) storeSegment(ctx context.Context, seg models.Segment) error {
	vec, err := s.embedder.Embed(ctx, seg.Text)
	if err != nil {
		return fmt.Errorf("%w: embed: %v", ErrPersistence, err)
	}
	if err := s.store.SaveSegment(ctx, seg, vec); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// storeVideo saves the record with a title embedding. A failed embedding
// still saves the record without a vector.
func (s *Service) storeVideo(ctx context.Context, video models.Video) error {
	var vec []float32
	if video.Title != "" {
		v, err := s.embedder.Embed(ctx, video.Title)
		if err != nil {
			log.Printf("Could not embed title of %s: %v", video.VideoID, err)
		} else {
			vec = v
		}
	}
	if err := s.store.SaveVideo(ctx, video, vec); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Search ranks stored segments against query. The filter only applies when
// videoID names a video with a stored record or stored segments; otherwise
// the search is global.
func (s *Service) Search(ctx context.Context, query, videoID string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	limit = clampLimit(limit, DefaultSearchLimit)

	filter := s.searchFilter(ctx, videoID)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.store.SearchSegments(ctx, vec, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("search segments: %w", err)
	}
	return results, nil
}

func (s *Service) searchFilter(ctx context.Context, videoID string) string {
	videoID, ok := cleanVideoID(videoID)
	if !ok {
		return ""
	}
	_, err := s.store.GetVideo(ctx, videoID)
	if err == nil {
		return videoID
	}
	if !errors.Is(err, models.ErrNotFound) {
		log.Printf("Could not look up video %s for search: %v", videoID, err)
	}

	// segments can outlive a failed final save of the video record
	segments, err := s.store.ListSegments(ctx, videoID)
	if err != nil {
		log.Printf("Could not list segments of video %s for search: %v", videoID, err)
		return ""
	}
	if len(segments) > 0 {
		return videoID
	}
	return ""
}

// Segments returns every stored segment of a video ordered by start time.
func (s *Service) Segments(ctx context.Context, videoID string) ([]models.Segment, error) {
	videoID, ok := cleanVideoID(videoID)
	if !ok {
		return []models.Segment{}, nil
	}
	segments, err := s.store.ListSegments(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve video segments: %w", err)
	}
	if segments == nil {
		segments = []models.Segment{}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}

// Recent lists processed videos, newest first. Store failures yield an empty list.
func (s *Service) Recent(ctx context.Context, limit int) []models.Video {
	videos, err := s.store.RecentVideos(ctx, clampLimit(limit, DefaultRecentLimit))
	if err != nil {
		log.Printf("Error getting processed videos: %v", err)
		return []models.Video{}
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos
}

// VideoInfo describes a video, stored or not. It always returns a record.
func (s *Service) VideoInfo(ctx context.Context, videoID string) *models.Video {
	placeholder := &models.Video{VideoID: videoID, Title: models.PlaceholderTitle(videoID)}

	id, ok := cleanVideoID(videoID)
	if !ok {
		return placeholder
	}

	video, err := s.store.GetVideo(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		log.Printf("Video %s not found in store, fetching metadata", id)
		video = &models.Video{VideoID: id, Title: models.PlaceholderTitle(id)}
	case err != nil:
		log.Printf("Error getting video by ID %s: %v", id, err)
		return placeholder
	case video.HasRealTitle():
		return video
	}

	if err := s.enrich(ctx, video); err != nil {
		log.Printf("Error fetching metadata for %s: %v", id, err)
	}
	if video.Title == "" {
		video.Title = models.PlaceholderTitle(id)
	}
	return video
}

// cleanVideoID rejects the blank and sentinel ids that front ends tend to send.
func cleanVideoID(videoID string) (string, bool) {
	videoID = strings.TrimSpace(videoID)
	switch strings.ToLower(videoID) {
	case "", "undefined", "null":
		return "", false
	}
	return videoID, youtube.IsVideoID(videoID)
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func fallbackTitle(text string) string {
	r := []rune(text)
	if len(r) > fallbackTitleRunes {
		r = r[:fallbackTitleRunes]
	}
	return string(r) + "..."
}
