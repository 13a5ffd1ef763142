package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"jamesfarrell.me/invideo-search/internal/config"
	"jamesfarrell.me/invideo-search/internal/transcript"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", func(k string) string {
		return map[string]string{"STORE": "memory", "OPENAI_API_KEY": "sk-test"}[k]
	})
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestNewWithMemoryStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.json")
	if err := os.WriteFile(path, []byte(`[{"text": "hello", "start": 0, "duration": 2}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(context.Background(), memoryConfig(t), WithTranscripts(transcript.FileSource{Path: path}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Service == nil || a.YouTube == nil {
		t.Fatal("New() left dependencies unset")
	}
	if got := a.Service.Recent(context.Background(), 0); len(got) != 0 {
		t.Errorf("Recent() on a fresh store = %v", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Store = "sqlite" }},
		{"missing api key", func(c *config.Config) { c.Embeddings.APIKey = "" }},
		{"bad windowing", func(c *config.Config) { c.Segments.Overlap = c.Segments.Window }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig(t)
			tt.mutate(cfg)
			if a, err := New(context.Background(), cfg); err == nil {
				a.Close()
				t.Error("New() succeeded, want error")
			}
		})
	}
}
