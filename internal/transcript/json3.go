package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// json3Doc is YouTube's timed-text "json3" format.
type json3Doc struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    *int64     `json:"tStartMs,omitempty"`
	DDurationMs *int64     `json:"dDurationMs,omitempty"`
	Segs        []json3Seg `json:"segs,omitempty"`
}

type json3Seg struct {
	Utf8 string `json:"utf8"`
}

func (e json3Event) text() string {
	var b strings.Builder
	for _, s := range e.Segs {
		b.WriteString(s.Utf8)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ParseJSON3 decodes a json3 track. Events without text (window setup,
// line breaks) are dropped. Events carrying text but no start time are
// returned as UnknownEntry so the normalizer can place them.
func ParseJSON3(b []byte) ([]RawEntry, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("parse json3: empty input")
	}
	var doc json3Doc
	// unknown fields (wpWinPosId, acAsrConf, ...) are ignored
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json3: %w", err)
	}

	entries := make([]RawEntry, 0, len(doc.Events))
	for _, ev := range doc.Events {
		text := ev.text()
		if text == "" {
			continue
		}
		if ev.TStartMs == nil {
			entries = append(entries, UnknownEntry{Value: text})
			continue
		}
		var dur int64
		if ev.DDurationMs != nil {
			dur = *ev.DDurationMs
		}
		entries = append(entries, FieldEntry{
			Text:     text,
			Start:    float64(*ev.TStartMs) / 1000,
			Duration: float64(dur) / 1000,
		})
	}
	return entries, nil
}
