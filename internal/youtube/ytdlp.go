package youtube

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = 60 * time.Second

// Runner dumps yt-dlp's JSON description of a video.
type Runner interface {
	DumpJSON(ctx context.Context, url string) ([]byte, error)
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path    string
	Timeout time.Duration
}

func NewYtDlp(path string, timeout time.Duration) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &YtDlp{Path: path, Timeout: timeout}
}

// DumpJSON runs `yt-dlp -J --skip-download <url>` and returns the JSON line of its output.
func (y *YtDlp) DumpJSON(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, y.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.Path,
		"-J",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w\nstderr: %s", err, stderr.String())
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{") {
			return []byte(line), nil
		}
	}
	return nil, fmt.Errorf("no JSON in yt-dlp output: %s", stdout.String())
}
