package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Synthetic timing applied to entries whose shape is not understood.
const (
	fallbackStep     = 5.0
	fallbackDuration = 5.0
)

// Entry is a normalized transcript fragment. Times are in seconds.
type Entry struct {
	Text     string
	Start    float64
	Duration float64
}

func (e Entry) End() float64 {
	return e.Start + e.Duration
}

// RawEntry is a transcript fragment as delivered by a source, before normalization.
// It is one of MapEntry, FieldEntry or UnknownEntry.
type RawEntry interface {
	rawEntry()
}

// MapEntry is a decoded key/value record, usually a JSON object with
// "text", "start" and "duration" keys.
type MapEntry map[string]any

// FieldEntry carries the three fields directly.
type FieldEntry struct {
	Text     string
	Start    float64
	Duration float64
}

// UnknownEntry wraps anything else a source produced.
type UnknownEntry struct {
	Value any
}

func (MapEntry) rawEntry()     {}
func (FieldEntry) rawEntry()   {}
func (UnknownEntry) rawEntry() {}

var errNothingToStringify = errors.New("entry has no value")

// EntryError describes an entry that was either degraded to synthetic timing
// or dropped entirely during normalization.
type EntryError struct {
	Index   int
	Skipped bool
	Err     error
}

func (e *EntryError) Error() string {
	if e.Skipped {
		return fmt.Sprintf("transcript entry %d skipped: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("transcript entry %d normalized with synthetic timing: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Normalize converts raw entries into Entries, preserving input order.
// Entries that could only be recovered through the fallback, and entries
// that had to be dropped, are reported in the returned issue list.
func Normalize(raw []RawEntry) ([]Entry, []error) {
	entries := make([]Entry, 0, len(raw))
	var issues []error

	for i, r := range raw {
		var (
			entry  Entry
			reason error
			ok     bool
		)

		switch v := r.(type) {
		case FieldEntry:
			entry, ok = Entry{Text: v.Text, Start: v.Start, Duration: v.Duration}, true
		case MapEntry:
			entry, reason = fromMap(v)
			ok = reason == nil
		case UnknownEntry:
			reason = fmt.Errorf("unknown entry type %T", v.Value)
		default:
			reason = fmt.Errorf("unsupported raw entry %T", r)
		}

		if !ok {
			fb, err := fallback(i, r)
			if err != nil {
				issues = append(issues, &EntryError{Index: i, Skipped: true, Err: err})
				continue
			}
			issues = append(issues, &EntryError{Index: i, Err: reason})
			entry = fb
		}

		entry.Start = clampSeconds(entry.Start)
		entry.Duration = clampSeconds(entry.Duration)
		entries = append(entries, entry)
	}

	return entries, issues
}

func fromMap(m MapEntry) (Entry, error) {
	text, hasText := m["text"]
	start, hasStart := m["start"]
	duration, hasDuration := m["duration"]
	if !hasText || !hasStart || !hasDuration {
		return Entry{}, errors.New("map entry is missing text, start or duration")
	}

	s, err := toSeconds(start)
	if err != nil {
		return Entry{}, fmt.Errorf("start: %w", err)
	}
	d, err := toSeconds(duration)
	if err != nil {
		return Entry{}, fmt.Errorf("duration: %w", err)
	}

	var t string
	switch tv := text.(type) {
	case string:
		t = tv
	case nil:
	default:
		t = fmt.Sprint(tv)
	}

	return Entry{Text: t, Start: s, Duration: d}, nil
}

func toSeconds(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// fallback stringifies the entry and gives it synthetic timing based on its position.
func fallback(index int, r RawEntry) (Entry, error) {
	text, err := stringify(r)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Text:     text,
		Start:    fallbackStep * float64(index),
		Duration: fallbackDuration,
	}, nil
}

func stringify(r RawEntry) (string, error) {
	var v any
	switch e := r.(type) {
	case UnknownEntry:
		v = e.Value
	case MapEntry:
		v = map[string]any(e)
	default:
		v = r
	}

	switch s := v.(type) {
	case nil:
		return "", errNothingToStringify
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("marshal entry: %w", err)
		}
		return string(b), nil
	default:
		return fmt.Sprint(s), nil
	}
}

func clampSeconds(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return 0
	}
	return s
}
