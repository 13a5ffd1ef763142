package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jamesfarrell.me/invideo-search/internal/transcript"
)

type fakeRunner struct {
	info videoInfo
	err  error
}

func (f fakeRunner) DumpJSON(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.Marshal(f.info)
}

type countingRunner struct {
	fakeRunner
	calls atomic.Int32
}

func (c *countingRunner) DumpJSON(ctx context.Context, u string) ([]byte, error) {
	c.calls.Add(1)
	return c.fakeRunner.DumpJSON(ctx, u)
}

// rewriteTransport sends every request to the test server, keeping path and query.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, info videoInfo, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	return NewClient(fakeRunner{info: info}, &http.Client{Transport: rewriteTransport{target: target}})
}

func timedText(lang, format string, extra ...string) string {
	u := "https://www.youtube.com/api/timedtext?v=vid&lang=" + lang + "&fmt=" + format
	for _, e := range extra {
		u += "&" + e
	}
	return u
}

func json3Body(text string) string {
	return `{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"` + text + `"}]}]}`
}

func firstText(t *testing.T, raw []transcript.RawEntry) string {
	t.Helper()
	entries, _ := transcript.Normalize(raw)
	if len(entries) == 0 {
		t.Fatal("no entries")
	}
	return entries[0].Text
}

func TestFetchTranscriptPrefersEnglish(t *testing.T) {
	info := videoInfo{
		Subtitles: map[string][]subtitleItem{
			"de": {{Ext: "json3", URL: timedText("de", "json3")}},
			"en": {{Ext: "vtt", URL: timedText("en", "vtt")}, {Ext: "json3", URL: timedText("en", "json3")}},
		},
	}
	c := newTestClient(t, info, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lang") == "en" && q.Get("fmt") == "json3" {
			w.Write([]byte(json3Body("hello")))
			return
		}
		http.NotFound(w, r)
	})

	raw, err := c.FetchTranscript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got := firstText(t, raw); got != "hello" {
		t.Errorf("text = %q, want hello", got)
	}
}

func TestFetchTranscriptTranslatesBeforeUntranslated(t *testing.T) {
	info := videoInfo{
		AutomaticCaptions: map[string][]subtitleItem{
			"de-orig": {{Ext: "json3", URL: timedText("de", "json3")}},
			"en":      {{Ext: "json3", URL: timedText("de", "json3", "tlang=en")}},
		},
	}
	c := newTestClient(t, info, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tlang") == "en" {
			w.Write([]byte(json3Body("good morning")))
			return
		}
		w.Write([]byte(json3Body("guten Morgen")))
	})

	tracks, err := c.ListTracks(context.Background(), "vid")
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].Lang != "de" || !tracks[0].Automatic {
		t.Fatalf("tracks = %+v, want a single automatic de track", tracks)
	}

	raw, err := c.FetchTranscript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got := firstText(t, raw); got != "good morning" {
		t.Errorf("text = %q, want translated text", got)
	}
}

func TestFetchTranscriptFallsBackToOriginalLanguage(t *testing.T) {
	info := videoInfo{
		Subtitles: map[string][]subtitleItem{
			"fr": {{Ext: "vtt", URL: timedText("fr", "vtt")}},
		},
	}
	c := newTestClient(t, info, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tlang") != "" {
			http.Error(w, "translation unavailable", http.StatusForbidden)
			return
		}
		w.Write([]byte("WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nbonjour"))
	})

	raw, err := c.FetchTranscript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got := firstText(t, raw); got != "bonjour" {
		t.Errorf("text = %q, want bonjour", got)
	}
}

func TestFetchTranscriptUnavailable(t *testing.T) {
	info := videoInfo{
		Subtitles: map[string][]subtitleItem{
			"en": {{Ext: "json3", URL: timedText("en", "json3")}},
			"es": {{Ext: "srv3", URL: timedText("es", "srv3")}},
		},
	}
	c := newTestClient(t, info, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})

	_, err := c.FetchTranscript(context.Background(), "vid")
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("error = %v, want ErrNoTranscript", err)
	}
	if !strings.Contains(err.Error(), "en") || !strings.Contains(err.Error(), "es") {
		t.Errorf("error %q does not list available languages", err)
	}
}

func TestFetchMetadata(t *testing.T) {
	c := NewClient(fakeRunner{info: videoInfo{Title: "Talk", Description: "About Go", Channel: "Gophers"}}, nil)
	meta, err := c.FetchMetadata(context.Background(), "vid")
	if err != nil {
		t.Fatalf("FetchMetadata() error = %v", err)
	}
	if meta.Title != "Talk" || meta.Description != "About Go" || meta.Channel != "Gophers" {
		t.Errorf("meta = %+v", meta)
	}

	failing := NewClient(fakeRunner{err: errors.New("yt-dlp missing")}, nil)
	if _, err := failing.FetchMetadata(context.Background(), "vid"); err == nil {
		t.Error("expected error when yt-dlp fails")
	}
}

func TestInfoRunsYtDlpOncePerVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(json3Body("hello")))
	}))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)

	runner := &countingRunner{fakeRunner: fakeRunner{info: videoInfo{
		Title:     "Talk",
		Subtitles: map[string][]subtitleItem{"en": {{Ext: "json3", URL: timedText("en", "json3")}}},
	}}}
	c := NewClient(runner, &http.Client{Transport: rewriteTransport{target: target}})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := c.FetchMetadata(ctx, "vid"); err != nil {
		t.Fatalf("FetchMetadata() error = %v", err)
	}
	if _, err := c.FetchTranscript(ctx, "vid"); err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("yt-dlp runs = %d, want 1", got)
	}

	if _, err := c.FetchMetadata(ctx, "other"); err != nil {
		t.Fatal(err)
	}
	if got := runner.calls.Load(); got != 2 {
		t.Errorf("yt-dlp runs after a second video = %d, want 2", got)
	}

	now = now.Add(infoTTL)
	if _, err := c.FetchMetadata(ctx, "vid"); err != nil {
		t.Fatal(err)
	}
	if got := runner.calls.Load(); got != 3 {
		t.Errorf("yt-dlp runs after expiry = %d, want 3", got)
	}
}

func TestInfoDoesNotCacheFailures(t *testing.T) {
	runner := &countingRunner{fakeRunner: fakeRunner{err: errors.New("rate limited")}}
	c := NewClient(runner, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchMetadata(context.Background(), "vid"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := runner.calls.Load(); got != 2 {
		t.Errorf("yt-dlp runs = %d, want 2", got)
	}
}
