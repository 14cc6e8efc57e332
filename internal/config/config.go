package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
	InputDir  string `toml:"input_dir"`
}

// Server contains HTTP API configuration.
type Server struct {
	Bind          string `toml:"bind"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// Ingest contains upload and download limits.
type Ingest struct {
	MaxUploadMB      int      `toml:"max_upload_mb"`
	SupportedFormats []string `toml:"supported_formats"`
	DownloadAttempts int      `toml:"download_attempts"`
}

// Teaser contains output clip constraints.
type Teaser struct {
	DefaultSeconds int  `toml:"default_seconds"`
	MinSeconds     int  `toml:"min_seconds"`
	MaxSeconds     int  `toml:"max_seconds"`
	MinSegment     int  `toml:"min_segment_seconds"`
	MaxSegment     int  `toml:"max_segment_seconds"`
	Subtitles      bool `toml:"subtitles"`
}

// Tools contains external binary paths.
type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	WhisperBin   string `toml:"whisper_bin"`
	WhisperModel string `toml:"whisper_model"`
}

// AI selects and configures the hosted model backend.
type AI struct {
	Provider      string   `toml:"provider"`
	OpenAIModel   string   `toml:"openai_model"`
	OpenAIBaseURL string   `toml:"openai_base_url"`
	OpenAIAPIKey  string   `toml:"-"`
	GeminiModel   string   `toml:"gemini_model"`
	GeminiAPIKeys []string `toml:"-"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Ingest  Ingest  `toml:"ingest"`
	Teaser  Teaser  `toml:"teaser"`
	Tools   Tools   `toml:"tools"`
	AI      AI      `toml:"ai"`
	Logging Logging `toml:"logging"`
}

// Default returns a config populated with defaults matching the sample file.
func Default() *Config {
	return &Config{
		Paths: Paths{
			DataDir:   "data",
			OutputDir: "outputs",
			CacheDir:  ".cache",
			InputDir:  "incoming",
		},
		Server: Server{
			Bind:          "127.0.0.1:8080",
			MaxConcurrent: 2,
		},
		Ingest: Ingest{
			MaxUploadMB:      500,
			SupportedFormats: []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".webm"},
			DownloadAttempts: 3,
		},
		Teaser: Teaser{
			DefaultSeconds: 30,
			MinSeconds:     10,
			MaxSeconds:     120,
			MinSegment:     4,
			MaxSegment:     60,
			Subtitles:      true,
		},
		Tools: Tools{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
		},
		AI: AI{
			Provider:    "openai",
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.5-flash",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. Secrets are always taken from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			decoder := toml.NewDecoder(file)
			decodeErr := decoder.Decode(cfg)
			_ = file.Close()
			if decodeErr != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, decodeErr)
			}
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		default:
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_BASE_URL"); v != "" {
		c.AI.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.AI.OpenAIModel = v
	}
	if v := os.Getenv("GEMINI_API_KEYS"); v != "" {
		keys := strings.Split(v, ",")
		c.AI.GeminiAPIKeys = c.AI.GeminiAPIKeys[:0]
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				c.AI.GeminiAPIKeys = append(c.AI.GeminiAPIKeys, k)
			}
		}
	}
}

func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir is required")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir is required")
	}
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = ".cache"
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 2
	}
	if c.Ingest.MaxUploadMB <= 0 {
		c.Ingest.MaxUploadMB = 500
	}
	if len(c.Ingest.SupportedFormats) == 0 {
		c.Ingest.SupportedFormats = Default().Ingest.SupportedFormats
	}
	if c.Ingest.DownloadAttempts <= 0 {
		c.Ingest.DownloadAttempts = 3
	}
	if c.Teaser.MinSeconds <= 0 || c.Teaser.MaxSeconds <= 0 {
		return errors.New("teaser.min_seconds and teaser.max_seconds must be > 0")
	}
	if c.Teaser.MinSeconds > c.Teaser.MaxSeconds {
		return fmt.Errorf("teaser.min_seconds %d exceeds teaser.max_seconds %d", c.Teaser.MinSeconds, c.Teaser.MaxSeconds)
	}
	if c.Teaser.DefaultSeconds < c.Teaser.MinSeconds || c.Teaser.DefaultSeconds > c.Teaser.MaxSeconds {
		return fmt.Errorf("teaser.default_seconds %d outside [%d,%d]", c.Teaser.DefaultSeconds, c.Teaser.MinSeconds, c.Teaser.MaxSeconds)
	}
	if c.Teaser.MinSegment <= 0 {
		c.Teaser.MinSegment = 4
	}
	if c.Teaser.MaxSegment <= 0 {
		c.Teaser.MaxSegment = 60
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
	switch strings.ToLower(strings.TrimSpace(c.AI.Provider)) {
	case "", "openai":
		c.AI.Provider = "openai"
	case "gemini":
		c.AI.Provider = "gemini"
	default:
		return fmt.Errorf("ai.provider: unsupported value %q", c.AI.Provider)
	}
	if c.AI.OpenAIModel == "" {
		c.AI.OpenAIModel = "gpt-4o-mini"
	}
	if c.AI.GeminiModel == "" {
		c.AI.GeminiModel = "gemini-2.5-flash"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Ingest.MaxUploadMB) * 1024 * 1024
}

// DefaultDuration returns the default teaser duration.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.Teaser.DefaultSeconds) * time.Second
}

// SupportsFormat reports whether name has a supported video extension.
func (c *Config) SupportsFormat(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range c.Ingest.SupportedFormats {
		if ext == strings.ToLower(f) {
			return true
		}
	}
	return false
}

// WriteSample writes the annotated sample config to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
