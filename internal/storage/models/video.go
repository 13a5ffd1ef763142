package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when no record matches the lookup.
var ErrNotFound = errors.New("not found")

type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Processed   bool   `json:"processed"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// PlaceholderTitle is the title used when nothing better is known about a video.
func PlaceholderTitle(videoID string) string {
	return fmt.Sprintf("Video %s", videoID)
}

// HasRealTitle reports whether the video carries a title other than the placeholder.
func (v *Video) HasRealTitle() bool {
	return v.Title != "" && v.Title != PlaceholderTitle(v.VideoID)
}

// Metadata is what the video platform tells us about a video. Every field is optional.
type Metadata struct {
	Title       string
	Description string
	Channel     string
}

// Apply copies the non-empty metadata fields onto the video.
func (m Metadata) Apply(v *Video) {
	if m.Title != "" {
		v.Title = m.Title
	}
	if m.Description != "" {
		v.Description = m.Description
	}
	if m.Channel != "" {
		v.Channel = m.Channel
	}
}

type VideoRequest struct {
	URL string `json:"url"`
}

type ProcessResponse struct {
	Video          *Video `json:"video"`
	NewlyProcessed bool   `json:"newly_processed"`
}
