package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Save upserts the video record keyed by video_id. A nil embedding is stored as NULL.
func (r *VideoRepository) Save(ctx context.Context, video models.Video, embedding []float32) error {
	const query = `
		INSERT INTO processed_videos (id, video_id, title, description, channel, processed, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			channel = EXCLUDED.channel,
			processed = EXCLUDED.processed,
			created_at = EXCLUDED.created_at,
			embedding = COALESCE(EXCLUDED.embedding, processed_videos.embedding)
	`

	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		video.VideoID,
		nullString(video.Title),
		nullString(video.Description),
		nullString(video.Channel),
		video.Processed,
		sql.NullInt64{Int64: video.CreatedAt, Valid: video.CreatedAt != 0},
		vec,
	)
	if err != nil {
		return fmt.Errorf("video upsert failed: %w", describe(err))
	}
	return nil
}

func (r *VideoRepository) Get(ctx context.Context, videoID string) (*models.Video, error) {
	const query = `
		SELECT video_id, title, description, channel, processed, created_at
		FROM processed_videos
		WHERE video_id = $1
		LIMIT 1
	`

	video, err := scanVideo(r.db.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", videoID, err)
	}
	return video, nil
}

// Recent lists processed videos, newest first.
func (r *VideoRepository) Recent(ctx context.Context, limit int) ([]models.Video, error) {
	const query = `
		SELECT video_id, title, description, channel, processed, created_at
		FROM processed_videos
		WHERE processed
		ORDER BY created_at DESC NULLS LAST
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent videos query failed: %w", describe(err))
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(s scanner) (*models.Video, error) {
	var (
		video                       models.Video
		title, description, channel sql.NullString
		createdAt                   sql.NullInt64
	)
	if err := s.Scan(&video.VideoID, &title, &description, &channel, &video.Processed, &createdAt); err != nil {
		return nil, err
	}
	video.Title = title.String
	video.Description = description.String
	video.Channel = channel.String
	video.CreatedAt = createdAt.Int64
	return &video, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
