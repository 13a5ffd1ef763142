// Package memory is an in-process segment and video store with brute-force
// cosine search. Nothing survives a restart.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

// point ids are derived from the segment id, so saving a segment twice
// replaces it
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("invideo-search/segment"))

type segmentPoint struct {
	id      uuid.UUID
	segment models.Segment
	vector  []float32
}

type Store struct {
	mu       sync.RWMutex
	segments []segmentPoint
	videos   map[string]models.Video
	// counts EnsureSchema calls, for tests
	schemaCalls int
}

func NewStore() *Store {
	return &Store{videos: map[string]models.Video{}}
}

func (s *Store) EnsureSchema(context.Context) error {
	s.mu.Lock()
	s.schemaCalls++
	s.mu.Unlock()
	return nil
}

func (s *Store) SaveSegment(_ context.Context, seg models.Segment, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := segmentPoint{id: uuid.NewSHA1(pointNamespace, []byte(seg.SegmentID)), segment: seg, vector: vector}
	for i := range s.segments {
		if s.segments[i].id == p.id {
			s.segments[i] = p
			return nil
		}
	}
	s.segments = append(s.segments, p)
	return nil
}

// SearchSegments ranks segments by cosine similarity. An empty videoID searches every video.
func (s *Store) SearchSegments(_ context.Context, vector []float32, videoID string, limit int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id     uuid.UUID
		result models.SearchResult
	}
	ranked := make([]scored, 0, len(s.segments))
	for _, p := range s.segments {
		if videoID != "" && p.segment.VideoID != videoID {
			continue
		}
		ranked = append(ranked, scored{id: p.id, result: models.SearchResult{
			Score:   cosineSimilarity(vector, p.vector),
			Segment: p.segment,
		}})
	}

	// equal scores order by point id so repeated searches agree
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].result.Score != ranked[j].result.Score {
			return ranked[i].result.Score > ranked[j].result.Score
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	results := make([]models.SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = r.result
	}
	return results, nil
}

// ListSegments returns a video's segments in insertion order.
func (s *Store) ListSegments(_ context.Context, videoID string) ([]models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Segment
	for _, p := range s.segments {
		if p.segment.VideoID == videoID {
			out = append(out, p.segment)
		}
	}
	return out, nil
}

func (s *Store) SaveVideo(_ context.Context, v models.Video, _ []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.VideoID] = v
	return nil
}

func (s *Store) GetVideo(_ context.Context, videoID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

// RecentVideos returns processed videos, newest first.
func (s *Store) RecentVideos(_ context.Context, limit int) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Video
	for _, v := range s.videos {
		if v.Processed {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].VideoID < out[j].VideoID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SegmentCount reports how many segment points are stored.
func (s *Store) SegmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// SchemaCalls reports how many times EnsureSchema ran.
func (s *Store) SchemaCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaCalls
}

// a·b / (|a| |b|), 0 when the vectors differ in length or either is zero
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
