package postgres

import (
	"context"
	"database/sql"
	"sync"

	"jamesfarrell.me/invideo-search/internal/storage/models"
)

// Store puts the segment and video repositories behind one handle.
type Store struct {
	db         *sql.DB
	dimensions int
	segments   *SegmentRepository
	videos     *VideoRepository

	mu          sync.Mutex
	schemaReady bool
}

func NewStore(db *sql.DB, dimensions int) *Store {
	return &Store{
		db:         db,
		dimensions: dimensions,
		segments:   NewSegmentRepository(db),
		videos:     NewVideoRepository(db),
	}
}

// EnsureSchema runs the schema setup once per process; later calls are no-ops.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaReady {
		return nil
	}
	if err := EnsureSchema(ctx, s.db, s.dimensions); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *Store) SaveSegment(ctx context.Context, seg models.Segment, embedding []float32) error {
	return s.segments.Save(ctx, seg, embedding)
}

func (s *Store) SearchSegments(ctx context.Context, embedding []float32, videoID string, limit int) ([]models.SearchResult, error) {
	return s.segments.Search(ctx, embedding, videoID, limit)
}

func (s *Store) ListSegments(ctx context.Context, videoID string) ([]models.Segment, error) {
	return s.segments.ListByVideo(ctx, videoID)
}

func (s *Store) SaveVideo(ctx context.Context, video models.Video, embedding []float32) error {
	return s.videos.Save(ctx, video, embedding)
}

func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	return s.videos.Get(ctx, videoID)
}

func (s *Store) RecentVideos(ctx context.Context, limit int) ([]models.Video, error) {
	return s.videos.Recent(ctx, limit)
}
