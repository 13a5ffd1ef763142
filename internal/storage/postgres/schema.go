package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const (
	segmentsTable = "video_segments"
	videosTable   = "processed_videos"
)

func schemaStatements(dimensions int) []string {
	segments := pq.QuoteIdentifier(segmentsTable)
	videos := pq.QuoteIdentifier(videosTable)

	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id uuid PRIMARY KEY,
				segment_id text NOT NULL,
				video_id text NOT NULL,
				text text NOT NULL,
				start_time double precision NOT NULL,
				end_time double precision NOT NULL,
				embedding vector(%d) NOT NULL,
				created_at timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, segments, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS video_segments_video_id_idx ON %s (video_id, start_time)`, segments),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS video_segments_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, segments),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id uuid PRIMARY KEY,
				video_id text NOT NULL UNIQUE,
				title text,
				description text,
				channel text,
				processed boolean NOT NULL DEFAULT false,
				created_at bigint,
				embedding vector(%d)
			)`, videos, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS processed_videos_created_at_idx ON %s (created_at DESC)`, videos),
	}
}

// EnsureSchema creates the pgvector extension, tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements(dimensions) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", describe(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// describe adds the Postgres error code and detail to driver errors.
func describe(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return fmt.Errorf("%w (code %s: %s)", err, pqErr.Code, pqErr.Detail)
	}
	return err
}
