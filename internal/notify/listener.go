// Package notify processes videos announced over Postgres LISTEN/NOTIFY.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"jamesfarrell.me/invideo-search/internal/storage/models"
)

const pingInterval = time.Minute

type Processor interface {
	Process(ctx context.Context, rawURL string) (*models.Video, bool, error)
}

// Listener waits for notifications on a channel and processes the video
// each one names, one at a time.
type Listener struct {
	dbURL     string
	channel   string
	processor Processor
}

func NewListener(dbURL, channel string, p Processor) *Listener {
	return &Listener{dbURL: dbURL, channel: channel, processor: p}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dbURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("Listen error: %v", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", l.channel, err)
	}
	log.Printf("Listening for videos on channel %s", l.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; anything sent meanwhile is lost
			if n == nil {
				log.Println("Listener reconnected")
				continue
			}
			l.Handle(ctx, n.Extra)
		case <-time.After(pingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("Ping error: %v", err)
				}
			}()
		}
	}
}

// Handle processes one notification payload. Failures are logged.
func (l *Listener) Handle(ctx context.Context, payload string) {
	url, err := ParsePayload(payload)
	if err != nil {
		log.Printf("Ignoring notification %q: %v", payload, err)
		return
	}
	video, newly, err := l.processor.Process(ctx, url)
	if err != nil {
		log.Printf("Error processing %s from notification: %v", url, err)
		return
	}
	log.Printf("Processed %s from notification (newly processed: %v)", video.VideoID, newly)
}

// ParsePayload accepts either {"url": "..."} or a bare URL or id.
func ParsePayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", errors.New("empty payload")
	}
	if !strings.HasPrefix(payload, "{") {
		return payload, nil
	}

	var req models.VideoRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("json parse error: %w", err)
	}
	if strings.TrimSpace(req.URL) == "" {
		return "", errors.New("payload has no url")
	}
	return req.URL, nil
}
