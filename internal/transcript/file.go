package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeJSON reads a JSON array of transcript items. Objects become
// MapEntry, every other element becomes UnknownEntry.
func DecodeJSON(r io.Reader) ([]RawEntry, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	entries := make([]RawEntry, 0, len(items))
	for i, item := range items {
		d := json.NewDecoder(bytes.NewReader(item))
		d.UseNumber()
		var v any
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode transcript item %d: %w", i, err)
		}
		if m, ok := v.(map[string]any); ok {
			entries = append(entries, MapEntry(m))
			continue
		}
		entries = append(entries, UnknownEntry{Value: v})
	}
	return entries, nil
}

// FileSource serves a transcript stored in a local JSON file, regardless of video id.
type FileSource struct {
	Path string
}

func (f FileSource) FetchTranscript(_ context.Context, _ string) ([]RawEntry, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}
	defer file.Close()

	entries, err := DecodeJSON(file)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("transcript file %s is empty", f.Path)
	}
	return entries, nil
}
