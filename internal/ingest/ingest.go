// Package ingest resolves user input (local file or YouTube URL) into a
// local video file the pipeline can work on.
package ingest

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Siddharth-vip/teasergen/internal/config"
	"github.com/Siddharth-vip/teasergen/internal/ports"
)

type Kind int

const (
	KindFile Kind = iota
	KindYouTube
)

type Source struct {
	Kind  Kind
	Value string
}

var youtubeRE = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/(watch\?v=|embed/|v/|shorts/|.+\?v=)?([^&=%?]{11})`,
)

// IsYouTubeURL reports whether s looks like a YouTube video URL.
func IsYouTubeURL(s string) bool {
	return youtubeRE.MatchString(strings.TrimSpace(s))
}

// Resolve classifies input as a local file or a YouTube URL and validates it
// against the configured limits.
func Resolve(cfg *config.Config, input string) (Source, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Source{}, fmt.Errorf("input is empty")
	}

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") || IsYouTubeURL(input) {
		if !IsYouTubeURL(input) {
			return Source{}, fmt.Errorf("unsupported URL %q: only YouTube URLs are accepted", input)
		}
		return Source{Kind: KindYouTube, Value: input}, nil
	}

	if err := ValidateLocalFile(cfg, input); err != nil {
		return Source{}, err
	}
	return Source{Kind: KindFile, Value: input}, nil
}

// ValidateLocalFile checks existence, format and the upload size limit.
func ValidateLocalFile(cfg *config.Config, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", path)
	}
	if !cfg.SupportsFormat(path) {
		return fmt.Errorf("unsupported video format %q (supported: %s)",
			path, strings.Join(cfg.Ingest.SupportedFormats, ", "))
	}
	if info.Size() > cfg.MaxUploadBytes() {
		return fmt.Errorf("file size %d MB exceeds the maximum of %d MB",
			info.Size()/(1024*1024), cfg.Ingest.MaxUploadMB)
	}
	return nil
}

// Ingestor fetches a resolved source to local disk.
type Ingestor struct {
	cfg        *config.Config
	downloader ports.Downloader
}

func New(cfg *config.Config, downloader ports.Downloader) *Ingestor {
	return &Ingestor{cfg: cfg, downloader: downloader}
}

// Fetch returns a local path for src, downloading it first when needed.
func (i *Ingestor) Fetch(ctx context.Context, src Source, destDir string, progress func(pct float64)) (string, error) {
	switch src.Kind {
	case KindFile:
		return src.Value, nil
	case KindYouTube:
		if i.downloader == nil {
			return "", fmt.Errorf("no downloader configured for URL input")
		}
		return i.downloader.Download(ctx, src.Value, destDir, progress)
	default:
		return "", fmt.Errorf("unknown source kind %d", src.Kind)
	}
}
