package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var vttTag = regexp.MustCompile(`<[^>]*>`)

// Cue is one timed block of a WebVTT document.
type Cue struct {
	Number int
	Start  time.Duration
	End    time.Duration
	Text   string
}

// Raw converts the cue into a transcript fragment.
func (c Cue) Raw() RawEntry {
	d := c.End - c.Start
	if d < 0 {
		d = 0
	}
	return FieldEntry{Text: c.Text, Start: c.Start.Seconds(), Duration: d.Seconds()}
}

// ParseVTT parses WebVTT content into cues. Header metadata lines
// (Kind:, Language:), NOTE blocks, cue settings and inline tags are dropped.
func ParseVTT(content string) ([]Cue, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(content, "WEBVTT") {
		return nil, fmt.Errorf("invalid VTT format: missing WEBVTT header")
	}

	cues := []Cue{}
	blocks := strings.Split(content, "\n\n")

	// the first block is the header
	for _, block := range blocks[1:] {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 2 || strings.HasPrefix(lines[0], "NOTE") {
			continue
		}

		// an optional identifier line may precede the timing line
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			timing = 1
		}
		timestamps := strings.SplitN(lines[timing], " --> ", 2)
		if len(timestamps) != 2 {
			continue
		}

		start, err := parseVTTTimestamp(strings.TrimSpace(timestamps[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start timestamp: %w", err)
		}

		// cue settings follow the end timestamp
		endField := strings.Fields(timestamps[1])
		if len(endField) == 0 {
			continue
		}
		end, err := parseVTTTimestamp(endField[0])
		if err != nil {
			return nil, fmt.Errorf("invalid end timestamp: %w", err)
		}

		var textLines []string
		for _, l := range lines[timing+1:] {
			l = strings.TrimSpace(vttTag.ReplaceAllString(l, ""))
			if l != "" {
				textLines = append(textLines, l)
			}
		}
		if len(textLines) == 0 {
			continue
		}

		cues = append(cues, Cue{
			Number: len(cues) + 1,
			Start:  start,
			End:    end,
			Text:   strings.Join(textLines, " "),
		})
	}

	return cues, nil
}

// parseVTTTimestamp accepts HH:MM:SS.mmm and MM:SS.mmm.
func parseVTTTimestamp(timestamp string) (time.Duration, error) {
	if !strings.Contains(timestamp, ".") {
		return 0, fmt.Errorf("invalid timestamp format: missing milliseconds")
	}

	parts := strings.Split(timestamp, ":")
	var hours int
	switch len(parts) {
	case 3:
		if len(parts[0]) < 2 {
			return 0, fmt.Errorf("invalid timestamp format: expected HH:MM:SS.mmm")
		}
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid hours: %w", err)
		}
		hours = h
		parts = parts[1:]
	case 2:
	default:
		return 0, fmt.Errorf("invalid timestamp format: expected HH:MM:SS.mmm")
	}

	if len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid timestamp format: expected two digit minutes")
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes: %w", err)
	}

	secondParts := strings.Split(parts[1], ".")
	if len(secondParts) != 2 {
		return 0, fmt.Errorf("invalid seconds format: missing milliseconds")
	}

	seconds, err := strconv.Atoi(secondParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds: %w", err)
	}

	milliseconds, err := strconv.Atoi(secondParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds: %w", err)
	}

	duration := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(milliseconds)*time.Millisecond

	return duration, nil
}
