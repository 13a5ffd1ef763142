package catalog

import "errors"

var (
	// ErrInvalidInput means the submitted reference is not a recognisable video.
	ErrInvalidInput = errors.New("invalid video reference")

	// ErrTranscriptUnavailable means no transcript track could be fetched in any language.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrMetadataUnavailable is logged, never returned from Process.
	ErrMetadataUnavailable = errors.New("metadata unavailable")

	// ErrPersistence marks a store or embedding failure for a single item.
	ErrPersistence = errors.New("persistence failure")

	// ErrProcessingInProgress means another instance is processing the same video.
	ErrProcessingInProgress = errors.New("video is already being processed")
)
