package transcript

import (
	"fmt"
	"strings"

	"jamesfarrell.me/invideo-search/internal/storage/models"
)

// Windowing controls how a transcript is cut into overlapping segments.
// Window is the target segment length and Overlap the amount consecutive
// windows share, both in seconds.
type Windowing struct {
	Window  float64
	Overlap float64
}

// DefaultWindowing produces 30 second segments overlapping by 10 seconds.
var DefaultWindowing = Windowing{Window: 30, Overlap: 10}

// Validate reports whether the windowing can make progress.
func (w Windowing) Validate() error {
	if w.Window <= 0 {
		return fmt.Errorf("segment window must be positive, got %v", w.Window)
	}
	if w.Overlap < 0 || w.Overlap >= w.Window {
		return fmt.Errorf("segment overlap must be in [0, %v), got %v", w.Window, w.Overlap)
	}
	return nil
}

// SegmentID names the segment opened by the entry at index i.
func SegmentID(videoID string, i int) string {
	return fmt.Sprintf("%s_%d", videoID, i)
}

// Segments cuts a normalized transcript into overlapping windows.
//
// A window opens at entry i and keeps taking entries while they end less
// than Window seconds after the window start. When the entry after i starts
// before the window's end minus Overlap, the next window is pushed forward
// to the first entry starting at least Window-Overlap seconds after this
// window's start.
func (w Windowing) Segments(videoID string, entries []Entry) []models.Segment {
	var segments []models.Segment
	stride := w.Window - w.Overlap
	n := len(entries)

	for i := 0; i < n; i++ {
		startTime := entries[i].Start
		endTime := startTime
		texts := make([]string, 0, 8)

		for j := i; j < n; j++ {
			end := entries[j].End()
			if j > i && end-startTime >= w.Window {
				break
			}
			texts = append(texts, entries[j].Text)
			if end > endTime {
				endTime = end
			}
		}

		text := strings.Join(texts, " ")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, models.Segment{
				SegmentID: SegmentID(videoID, i),
				VideoID:   videoID,
				Text:      text,
				Start:     startTime,
				End:       endTime,
			})
		}

		if i+1 < n && entries[i+1].Start < endTime-w.Overlap {
			for i+1 < n && entries[i+1].Start < startTime+stride {
				i++
			}
		}
	}

	return segments
}
