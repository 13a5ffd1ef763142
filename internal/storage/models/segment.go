package models

// Segment is a time-bounded slice of a video's transcript, stored and searched as one unit.
type Segment struct {
	SegmentID string  `json:"segment_id"`
	VideoID   string  `json:"video_id"`
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

type SearchResult struct {
	Score   float64 `json:"score"`
	Segment Segment `json:"segment"`
}
