package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"jamesfarrell.me/invideo-search/internal/storage/models"
	"jamesfarrell.me/invideo-search/internal/transcript"
)

const (
	targetLang      = "en"
	maxTrackBytes   = 20_000_000
	defaultFetchTTL = 30 * time.Second
	// long enough to cover one Process call, which reads metadata and
	// then tracks for the same video
	infoTTL = 5 * time.Minute
)

// preferred download formats, best first
var trackFormats = []string{"json3", "vtt"}

var ErrNoTranscript = errors.New("no usable transcript")

// Client reads video metadata and caption tracks through yt-dlp.
// yt-dlp output is kept for infoTTL so one video costs one yt-dlp run.
type Client struct {
	runner     Runner
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	infos map[string]cachedInfo
}

type cachedInfo struct {
	info    *videoInfo
	fetched time.Time
}

func NewClient(runner Runner, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTTL}
	}
	return &Client{
		runner:     runner,
		httpClient: httpClient,
		now:        time.Now,
		infos:      make(map[string]cachedInfo),
	}
}

func (c *Client) info(ctx context.Context, videoID string) (*videoInfo, error) {
	now := c.now()
	c.mu.Lock()
	cached, ok := c.infos[videoID]
	c.mu.Unlock()
	if ok && now.Sub(cached.fetched) < infoTTL {
		return cached.info, nil
	}

	raw, err := c.runner.DumpJSON(ctx, WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	info, err := parseInfo(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for id, e := range c.infos {
		if now.Sub(e.fetched) >= infoTTL {
			delete(c.infos, id)
		}
	}
	c.infos[videoID] = cachedInfo{info: info, fetched: now}
	c.mu.Unlock()
	return info, nil
}

// FetchMetadata returns title, description and channel. Missing fields are left empty.
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (models.Metadata, error) {
	log.Printf("Fetching metadata for video %s", videoID)
	info, err := c.info(ctx, videoID)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("fetch metadata for %s: %w", videoID, err)
	}

	channel := info.Uploader
	if channel == "" {
		channel = info.Channel
	}
	return models.Metadata{
		Title:       info.Title,
		Description: info.Description,
		Channel:     channel,
	}, nil
}

// ListTracks returns the caption tracks available for a video.
func (c *Client) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	info, err := c.info(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts for %s: %w", videoID, err)
	}
	return info.tracks(), nil
}

// FetchTranscript downloads a transcript, trying in order: an English track,
// every translatable track translated to English, then every track as is.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) ([]transcript.RawEntry, error) {
	tracks, err := c.ListTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var english, others []Track
	for _, t := range tracks {
		if t.IsEnglish() {
			english = append(english, t)
		} else {
			others = append(others, t)
		}
	}

	for _, t := range english {
		entries, err := c.fetchTrack(ctx, t, "")
		if err == nil {
			log.Printf("Using %s transcript for video %s", t, videoID)
			return entries, nil
		}
		log.Printf("Failed to fetch %s transcript for video %s: %v", t, videoID, err)
	}

	for _, t := range others {
		if !t.Translatable() {
			continue
		}
		entries, err := c.fetchTrack(ctx, t, targetLang)
		if err == nil {
			log.Printf("Translated %s transcript to %s for video %s", t, targetLang, videoID)
			return entries, nil
		}
		log.Printf("Failed to translate %s transcript for video %s: %v", t, videoID, err)
	}

	for _, t := range others {
		entries, err := c.fetchTrack(ctx, t, "")
		if err == nil {
			log.Printf("Using untranslated %s transcript for video %s", t, videoID)
			return entries, nil
		}
		log.Printf("Failed to fetch %s transcript for video %s: %v", t, videoID, err)
	}

	langs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		langs = append(langs, t.String())
	}
	return nil, fmt.Errorf("%w for video %s, available languages: [%s]",
		ErrNoTranscript, videoID, strings.Join(langs, ", "))
}

// fetchTrack downloads the best available format of a track, translated
// when tlang is set, and parses it.
func (c *Client) fetchTrack(ctx context.Context, t Track, tlang string) ([]transcript.RawEntry, error) {
	var lastErr error
	for _, format := range trackFormats {
		rawURL, ok := t.Formats[format]
		if !ok {
			continue
		}
		if tlang != "" {
			translated, err := translateURL(rawURL, tlang)
			if err != nil {
				lastErr = err
				continue
			}
			rawURL = translated
		}

		body, err := c.get(ctx, rawURL)
		if err != nil {
			lastErr = err
			continue
		}

		entries, err := parseTrack(format, body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) == 0 {
			lastErr = fmt.Errorf("%s track is empty", format)
			continue
		}
		return entries, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no supported format among %d", len(t.Formats))
	}
	return nil, lastErr
}

func parseTrack(format string, body []byte) ([]transcript.RawEntry, error) {
	switch format {
	case "json3":
		return transcript.ParseJSON3(body)
	case "vtt":
		cues, err := transcript.ParseVTT(string(body))
		if err != nil {
			return nil, err
		}
		entries := make([]transcript.RawEntry, len(cues))
		for i, cue := range cues {
			entries[i] = cue.Raw()
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported track format %q", format)
	}
}

func translateURL(rawURL, lang string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse track url: %w", err)
	}
	q := u.Query()
	q.Set("tlang", lang)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch track: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	if len(body) > maxTrackBytes {
		return nil, fmt.Errorf("track larger than %d bytes", maxTrackBytes)
	}
	return body, nil
}
