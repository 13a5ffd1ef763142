package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeAPI(t *testing.T, vec []float32, gotDims *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if gotDims != nil {
			*gotDims = req.Dimensions
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbed(t *testing.T) {
	var dims int
	srv := newFakeAPI(t, []float32{0.1, 0.2, 0.3}, &dims)

	e, err := NewOpenAI(Config{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "text-embedding-3-small", Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("Embed() = %v", vec)
	}
	if dims != 3 {
		t.Errorf("dimensions sent = %d, want 3", dims)
	}
}

func TestOpenAIEmbedDimensionMismatch(t *testing.T) {
	srv := newFakeAPI(t, []float32{0.1, 0.2}, nil)

	e, err := NewOpenAI(Config{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 1536})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
