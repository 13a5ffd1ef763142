package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON3 = `{
  "wireMagic": "pb3",
  "events": [
    {"tStartMs": 0, "dDurationMs": 600000, "id": 1, "wpWinPosId": 1},
    {"tStartMs": 160, "dDurationMs": 4080, "segs": [{"utf8": "welcome"}, {"utf8": " back", "tOffsetMs": 400}]},
    {"tStartMs": 2150, "dDurationMs": 2090, "aAppend": 1, "segs": [{"utf8": "\n"}]},
    {"tStartMs": 4240, "segs": [{"utf8": "everyone\n"}]},
    {"segs": [{"utf8": "orphan"}]}
  ]
}`

func TestParseJSON3(t *testing.T) {
	raw, err := ParseJSON3([]byte(sampleJSON3))
	if err != nil {
		t.Fatalf("ParseJSON3() error = %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(raw), raw)
	}

	first, ok := raw[0].(FieldEntry)
	if !ok || first.Text != "welcome back" || first.Start != 0.16 || first.Duration != 4.08 {
		t.Errorf("first entry = %+v", raw[0])
	}
	second, ok := raw[1].(FieldEntry)
	if !ok || second.Text != "everyone" || second.Duration != 0 {
		t.Errorf("second entry = %+v", raw[1])
	}
	if u, ok := raw[2].(UnknownEntry); !ok || u.Value != "orphan" {
		t.Errorf("third entry = %+v, want UnknownEntry", raw[2])
	}
}

func TestParseJSON3Errors(t *testing.T) {
	for _, in := range []string{"", "not json"} {
		if _, err := ParseJSON3([]byte(in)); err == nil {
			t.Errorf("ParseJSON3(%q) = nil error", in)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	in := `[{"text": "hi", "start": 0, "duration": 1.5}, "loose line", 7, null]`
	raw, err := DecodeJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if len(raw) != 4 {
		t.Fatalf("got %d entries", len(raw))
	}
	if _, ok := raw[0].(MapEntry); !ok {
		t.Errorf("object decoded as %T, want MapEntry", raw[0])
	}
	for i := 1; i < 4; i++ {
		if _, ok := raw[i].(UnknownEntry); !ok {
			t.Errorf("item %d decoded as %T, want UnknownEntry", i, raw[i])
		}
	}

	entries, issues := Normalize(raw)
	if len(entries) != 3 || len(issues) != 3 {
		t.Fatalf("Normalize() = %d entries, %d issues", len(entries), len(issues))
	}
	if entries[0] != (Entry{Text: "hi", Start: 0, Duration: 1.5}) {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[2] != (Entry{Text: "7", Start: 10, Duration: 5}) {
		t.Errorf("numeric entry = %+v", entries[2])
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.json")
	if err := os.WriteFile(path, []byte(`[{"text": "a", "start": 0, "duration": 1}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	raw, err := FileSource{Path: path}.FetchTranscript(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if len(raw) != 1 {
		t.Errorf("got %d entries", len(raw))
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileSource{Path: empty}).FetchTranscript(context.Background(), "x"); err == nil {
		t.Error("expected error for empty transcript file")
	}
	if _, err := (FileSource{Path: filepath.Join(dir, "missing.json")}).FetchTranscript(context.Background(), "x"); err == nil {
		t.Error("expected error for missing file")
	}
}
