package youtube

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
)

var ErrInvalidVideoID = errors.New("could not extract video ID")

var (
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([\w-]+)`),
		regexp.MustCompile(`(?:youtube\.com/embed/)([\w-]+)`),
		regexp.MustCompile(`(?:youtube\.com/v/)([\w-]+)`),
	}
	bareID = regexp.MustCompile(`^[\w-]+$`)
)

// ExtractVideoID finds the video id in a watch, short-link, embed or /v/ URL,
// or accepts the input as an id when it only has identifier-safe characters.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)

	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}

	if bareID.MatchString(input) {
		return input, nil
	}

	log.Printf("Failed to extract video ID from URL: %q", input)
	return "", fmt.Errorf("%w from %q", ErrInvalidVideoID, input)
}

// IsVideoID reports whether s could be a video id.
func IsVideoID(s string) bool {
	return bareID.MatchString(s)
}

// WatchURL returns the canonical watch page for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
