package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

// maxSegmentsPerVideo bounds ListByVideo.
const maxSegmentsPerVideo = 10000

type SegmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Save upserts a segment under a freshly generated point id.
func (r *SegmentRepository) Save(ctx context.Context, seg models.Segment, embedding []float32) error {
	const query = `
		INSERT INTO video_segments (id, segment_id, video_id, text, start_time, end_time, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			segment_id = EXCLUDED.segment_id,
			video_id = EXCLUDED.video_id,
			text = EXCLUDED.text,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			embedding = EXCLUDED.embedding
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		seg.SegmentID,
		seg.VideoID,
		seg.Text,
		seg.Start,
		seg.End,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("segment insert failed: %w", describe(err))
	}
	return nil
}

// Search returns the segments closest to the query vector by cosine
// distance, optionally restricted to one video.
func (r *SegmentRepository) Search(ctx context.Context, embedding []float32, videoID string, limit int) ([]models.SearchResult, error) {
	query := `
		SELECT segment_id, video_id, text, start_time, end_time,
			1 - (embedding <=> $1) AS score
		FROM video_segments
	`
	args := []any{pgvector.NewVector(embedding), limit}
	if videoID != "" {
		query += ` WHERE video_id = $3`
		args = append(args, videoID)
	}
	query += ` ORDER BY embedding <=> $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("segment search failed: %w", describe(err))
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var res models.SearchResult
		if err := rows.Scan(
			&res.Segment.SegmentID,
			&res.Segment.VideoID,
			&res.Segment.Text,
			&res.Segment.Start,
			&res.Segment.End,
			&res.Score,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByVideo returns a video's segments ordered by start time.
func (r *SegmentRepository) ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error) {
	const query = `
		SELECT segment_id, video_id, text, start_time, end_time
		FROM video_segments
		WHERE video_id = $1
		ORDER BY start_time
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, videoID, maxSegmentsPerVideo)
	if err != nil {
		return nil, fmt.Errorf("segment list failed: %w", describe(err))
	}
	defer rows.Close()

	segments := []models.Segment{}
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.SegmentID, &seg.VideoID, &seg.Text, &seg.Start, &seg.End); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
