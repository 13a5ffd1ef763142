package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"jamesfarrell.me/invideo-search/internal/storage/db"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(3)
	joined := strings.Join(stmts, "\n")
	for _, want := range []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`"video_segments"`,
		`"processed_videos"`,
		"vector(3)",
		"vector_cosine_ops",
		"video_id text NOT NULL UNIQUE",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("schema is missing %q", want)
		}
	}
}

func TestEnsureSchemaRejectsBadDimensions(t *testing.T) {
	if err := EnsureSchema(context.Background(), nil, 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

// openTestDB connects to TEST_DATABASE_URL and moves the test into a
// throwaway schema so tables do not collide with real data.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := db.NewConnection(ctx, db.Config{URL: url, MaxOpenConns: 1})
	if err != nil {
		t.Fatal(err)
	}
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	for _, stmt := range []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		"CREATE SCHEMA " + schema,
		"SET search_path TO " + schema + ", public",
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() {
		conn.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		conn.Close()
	})
	return conn
}

func TestStoreRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	s := NewStore(conn, 2)

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}

	segs := []struct {
		seg models.Segment
		vec []float32
	}{
		{models.Segment{SegmentID: "v_4", VideoID: "v", Text: "later", Start: 20, End: 45}, []float32{0, 1}},
		{models.Segment{SegmentID: "v_0", VideoID: "v", Text: "first", Start: 0, End: 25}, []float32{1, 0}},
		{models.Segment{SegmentID: "w_0", VideoID: "w", Text: "other", Start: 0, End: 10}, []float32{1, 0.1}},
	}
	for _, s2 := range segs {
		if err := s.SaveSegment(ctx, s2.seg, s2.vec); err != nil {
			t.Fatalf("SaveSegment() error = %v", err)
		}
	}

	listed, err := s.ListSegments(ctx, "v")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 || listed[0].SegmentID != "v_0" || listed[1].SegmentID != "v_4" {
		t.Errorf("ListSegments() = %+v", listed)
	}

	results, err := s.SearchSegments(ctx, []float32{1, 0}, "v", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Segment.SegmentID != "v_0" {
		t.Errorf("filtered search = %+v", results)
	}

	global, err := s.SearchSegments(ctx, []float32{1, 0}, "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(global) != 3 {
		t.Errorf("global search returned %d results", len(global))
	}

	if _, err := s.GetVideo(ctx, "v"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetVideo() error = %v, want ErrNotFound", err)
	}
	video := models.Video{VideoID: "v", Title: "Talk", Processed: true, CreatedAt: 1700000000}
	if err := s.SaveVideo(ctx, video, nil); err != nil {
		t.Fatal(err)
	}
	video.Channel = "Gophers"
	if err := s.SaveVideo(ctx, video, []float32{1, 1}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVideo(ctx, "v")
	if err != nil {
		t.Fatal(err)
	}
	if *got != video {
		t.Errorf("GetVideo() = %+v, want %+v", got, video)
	}

	recent, err := s.RecentVideos(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].VideoID != "v" {
		t.Errorf("RecentVideos() = %+v", recent)
	}
}
