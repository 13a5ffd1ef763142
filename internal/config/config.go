// Package config assembles service settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "catalog.yaml"

type Config struct {
	HTTP struct {
		Addr       string `yaml:"addr"`
		APIKey     string `yaml:"api_key"`
		CORSOrigin string `yaml:"cors_origin"`
	} `yaml:"http"`

	// Store is "postgres" or "memory".
	Store string `yaml:"store"`

	Database struct {
		URL string `yaml:"url"`
		// ID selects DATABASE_URL_<ID> from the environment when URL is empty.
		ID string `yaml:"id"`
		// ListenChannel, when set, makes the service process videos
		// announced with NOTIFY on this channel.
		ListenChannel string `yaml:"listen_channel"`
	} `yaml:"database"`

	Embeddings struct {
		APIKey     string `yaml:"api_key"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		Dimensions int    `yaml:"dimensions"`
	} `yaml:"embeddings"`

	YtDlp struct {
		Path    string        `yaml:"path"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"yt_dlp"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
	} `yaml:"redis"`

	Segments struct {
		Window  float64 `yaml:"window_seconds"`
		Overlap float64 `yaml:"overlap_seconds"`
	} `yaml:"segments"`
}

func defaultConfig() *Config {
	c := &Config{}
	c.HTTP.Addr = ":8080"
	c.HTTP.CORSOrigin = "*"
	c.Store = "postgres"
	c.Database.ID = "DEFAULT"
	c.Embeddings.Model = "text-embedding-ada-002"
	c.Embeddings.Dimensions = 1536
	c.YtDlp.Path = "yt-dlp"
	c.YtDlp.Timeout = 2 * time.Minute
	c.Redis.LockTTL = 15 * time.Minute
	c.Segments.Window = 30
	c.Segments.Overlap = 10
	return c
}

// Load reads path (or DefaultFile when path is empty and the file exists)
// and then applies environment overrides looked up through getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("HTTP_ADDR", &c.HTTP.Addr)
	setString("SERVICE_API_KEY", &c.HTTP.APIKey)
	setString("CORS_ORIGIN", &c.HTTP.CORSOrigin)
	setString("STORE", &c.Store)
	setString("DATABASE_URL", &c.Database.URL)
	setString("DB_ID", &c.Database.ID)
	setString("LISTEN_CHANNEL", &c.Database.ListenChannel)
	setString("OPENAI_API_KEY", &c.Embeddings.APIKey)
	setString("OPENAI_BASE_URL", &c.Embeddings.BaseURL)
	setString("EMBEDDING_MODEL", &c.Embeddings.Model)
	setString("YTDLP_PATH", &c.YtDlp.Path)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIMENSIONS", &c.Embeddings.Dimensions},
		{"REDIS_DB", &c.Redis.DB},
	}
	for _, e := range ints {
		if v := strings.TrimSpace(getenv(e.key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"YTDLP_TIMEOUT", &c.YtDlp.Timeout},
		{"PROCESS_LOCK_TTL", &c.Redis.LockTTL},
	}
	for _, e := range durations {
		if v := strings.TrimSpace(getenv(e.key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = d
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"SEGMENT_WINDOW_SECONDS", &c.Segments.Window},
		{"SEGMENT_OVERLAP_SECONDS", &c.Segments.Overlap},
	}
	for _, e := range floats {
		if v := strings.TrimSpace(getenv(e.key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = f
		}
	}

	if c.Database.URL == "" && c.Database.ID != "" {
		c.Database.URL = getenv(fmt.Sprintf("DATABASE_URL_%s", c.Database.ID))
	}
	return nil
}

// Validate checks the settings a running service depends on.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case "memory":
		if c.Database.ListenChannel != "" {
			errs = append(errs, errors.New("LISTEN_CHANNEL needs the postgres store"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("no database URL found for DATABASE_URL_%s", c.Database.ID))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Embeddings.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY must be set"))
	}
	if c.Embeddings.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must be positive, got %d", c.Embeddings.Dimensions))
	}
	if c.Segments.Window <= 0 || c.Segments.Overlap < 0 || c.Segments.Overlap >= c.Segments.Window {
		errs = append(errs, fmt.Errorf("invalid segment window %gs with overlap %gs", c.Segments.Window, c.Segments.Overlap))
	}
	return errors.Join(errs...)
}
