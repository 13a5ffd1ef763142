package youtube

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const origSuffix = "-orig"

type subtitleItem struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// videoInfo is the subset of yt-dlp's JSON output we use.
type videoInfo struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Description       string                    `json:"description"`
	Uploader          string                    `json:"uploader"`
	Channel           string                    `json:"channel"`
	Subtitles         map[string][]subtitleItem `json:"subtitles"`
	AutomaticCaptions map[string][]subtitleItem `json:"automatic_captions"`
}

func parseInfo(raw []byte) (*videoInfo, error) {
	var info videoInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("unmarshal yt-dlp output: %w", err)
	}
	return &info, nil
}

// Track is one caption track of a video, with a download URL per format.
type Track struct {
	Lang      string
	Name      string
	Automatic bool
	Formats   map[string]string
}

// Translatable reports whether YouTube can translate the track on download.
func (t Track) Translatable() bool {
	for _, u := range t.Formats {
		if isTimedText(u) {
			return true
		}
	}
	return false
}

func (t Track) IsEnglish() bool {
	return t.Lang == "en" || strings.HasPrefix(t.Lang, "en-")
}

func (t Track) String() string {
	if t.Automatic {
		return t.Lang + " (auto)"
	}
	return t.Lang
}

func isTimedText(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), "youtube.com") && u.Path == "/api/timedtext"
}

func hasTranslation(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Query().Get("tlang") != ""
}

// tracks lists manual tracks first, then automatic ones, each sorted by language.
// Automatic captions that yt-dlp offers as on-the-fly translations are left out.
func (v *videoInfo) tracks() []Track {
	var manual, auto []Track

	for lang, items := range v.Subtitles {
		if lang == "live_chat" {
			continue
		}
		if t, ok := newTrack(lang, items, false); ok {
			manual = append(manual, t)
		}
	}

	for lang, items := range v.AutomaticCaptions {
		var orig []subtitleItem
		for _, it := range items {
			if !hasTranslation(it.URL) {
				orig = append(orig, it)
			}
		}
		if t, ok := newTrack(strings.TrimSuffix(lang, origSuffix), orig, true); ok {
			auto = append(auto, t)
		}
	}

	byLang := func(ts []Track) {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Lang < ts[j].Lang })
	}
	byLang(manual)
	byLang(auto)

	return append(manual, dedupe(auto)...)
}

func newTrack(lang string, items []subtitleItem, automatic bool) (Track, bool) {
	t := Track{Lang: lang, Automatic: automatic, Formats: map[string]string{}}
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if t.Name == "" {
			t.Name = it.Name
		}
		t.Formats[strings.ToLower(it.Ext)] = it.URL
	}
	return t, len(t.Formats) > 0
}

// dedupe keeps the first automatic track per language ("de" and "de-orig" both map to "de").
func dedupe(ts []Track) []Track {
	seen := map[string]bool{}
	out := ts[:0]
	for _, t := range ts {
		if seen[t.Lang] {
			continue
		}
		seen[t.Lang] = true
		out = append(out, t)
	}
	return out
}
