// Package ytdlp downloads source videos from YouTube via yt-dlp.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// Verifier checks a downloaded artifact, typically by probing it with
// ffprobe. A nil verifier skips the check.
type Verifier func(ctx context.Context, path string) error

type Adapter struct {
	attempts  int
	baseDelay time.Duration
	verify    Verifier
}

func New(attempts int, verify Verifier) *Adapter {
	if attempts <= 0 {
		attempts = 3
	}
	return &Adapter{attempts: attempts, baseDelay: 5 * time.Second, verify: verify}
}

// Download fetches the best video+audio streams merged to mp4, retrying with
// exponential backoff. Permanent failures (private, age-restricted,
// sign-in-required videos) are not retried.
func (a *Adapter) Download(ctx context.Context, url, destDir string, progress func(pct float64)) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Format("bv*+ba/b").
		MergeOutputFormat("mp4").
		Output(destDir + "/%(id)s.%(ext)s")

	if progress != nil {
		dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				progress(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100)
			}
		})
	}

	var lastErr error
	for attempt := 0; attempt < a.attempts; attempt++ {
		if attempt > 0 {
			delay := a.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := dl.Run(ctx, url)
		if err != nil {
			if perm, reason := permanentFailure(err); perm {
				return "", fmt.Errorf("download %s: %s", url, reason)
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}

		path, err := downloadedFile(result)
		if err != nil {
			lastErr = err
			continue
		}

		if a.verify != nil {
			if err := a.verify(ctx, path); err != nil {
				_ = os.Remove(path)
				lastErr = fmt.Errorf("verify download: %w", err)
				continue
			}
		}
		return path, nil
	}

	return "", fmt.Errorf("download %s failed after %d attempts: %w", url, a.attempts, lastErr)
}

func downloadedFile(result *ytdlp.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("download produced no result")
	}
	info, err := result.GetExtractedInfo()
	if err != nil {
		return "", fmt.Errorf("extract download info: %w", err)
	}
	for _, i := range info {
		if i.Filename != nil && *i.Filename != "" {
			return *i.Filename, nil
		}
	}
	return "", fmt.Errorf("download produced no file")
}

// permanentFailure classifies errors that no amount of retrying will fix.
func permanentFailure(err error) (bool, string) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "age restricted") || strings.Contains(msg, "age-restricted"):
		return true, "video is age-restricted"
	case strings.Contains(msg, "private video") || strings.Contains(msg, "unavailable"):
		return true, "video is unavailable or private"
	case strings.Contains(msg, "sign in"):
		return true, "video requires sign-in to access"
	default:
		return false, ""
	}
}
