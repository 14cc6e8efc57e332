// Package pipeline wires configuration and adapters into a full teaser run.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Siddharth-vip/teasergen/internal/config"
	"github.com/Siddharth-vip/teasergen/internal/ingest"
	"github.com/Siddharth-vip/teasergen/internal/ports"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/ffmpeg"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/gemini"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/openai"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/whispercpp"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/ytdlp"
	"github.com/Siddharth-vip/teasergen/internal/types"
	"github.com/Siddharth-vip/teasergen/internal/usecase"
)

// StageDownload is reported while a URL source is being fetched; the
// remaining stages come from the usecase.
const StageDownload = "downloading"

type Run struct {
	Cfg      *config.Config
	Input    string
	Prefs    types.Preferences
	Logf     func(format string, args ...any)
	Progress func(stage string, pct float64)
}

type RunResult struct {
	Manifest     types.Manifest
	TeaserPath   string
	ManifestPath string
	OutDir       string
}

// Execute runs the whole teaser flow for a single input.
func Execute(ctx context.Context, r Run) (RunResult, error) {
	cfg := r.Cfg
	if cfg == nil {
		return RunResult{}, fmt.Errorf("pipeline: config is required")
	}
	logf := r.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	progress := r.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	prefs := r.Prefs
	if prefs.Duration <= 0 {
		prefs.Duration = cfg.DefaultDuration()
	}
	if prefs.Tone == "" {
		prefs.Tone = types.ToneProfessional
	}
	if err := validatePrefs(cfg, prefs); err != nil {
		return RunResult{}, err
	}

	// adapters
	video := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	asr := whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel)
	downloader := ytdlp.New(cfg.Ingest.DownloadAttempts, func(ctx context.Context, path string) error {
		_, err := video.ProbeDuration(ctx, path)
		return err
	})
	ranker, captioner, err := buildAI(cfg)
	if err != nil {
		return RunResult{}, err
	}

	src, err := ingest.Resolve(cfg, r.Input)
	if err != nil {
		return RunResult{}, err
	}

	runID := hash(fmt.Sprintf("%s|%d", r.Input, time.Now().UTC().UnixNano()))
	cacheDir := filepath.Join(cfg.Paths.CacheDir, "runs", runID)
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return RunResult{}, err
	}
	logf("cache: %s", cacheDir)

	progress(StageDownload, 0)
	local, err := ingest.New(cfg, downloader).Fetch(ctx, src, filepath.Join(cacheDir, "download"), func(pct float64) {
		progress(StageDownload, pct)
	})
	if err != nil {
		return RunResult{}, err
	}
	progress(StageDownload, 100)
	if src.Kind == ingest.KindYouTube {
		logf("downloaded: %s", local)
	}

	runOutDir := buildRunOutDir(cfg.Paths.OutputDir, local, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return RunResult{}, err
	}
	logf("output run dir: %s", runOutDir)

	uc := usecase.New(usecase.Deps{
		Video:   video,
		ASR:     asr,
		Ranker:  ranker,
		Caption: captioner,
	})

	res, err := uc.Run(ctx, usecase.Input{
		Video:      local,
		Prefs:      prefs,
		MinSegment: time.Duration(cfg.Teaser.MinSegment) * time.Second,
		MaxSegment: time.Duration(cfg.Teaser.MaxSegment) * time.Second,
		CacheDir:   cacheDir,
		OutDir:     runOutDir,
		Logf:       logf,
		Progress:   progress,
	})
	if err != nil {
		return RunResult{}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return RunResult{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return RunResult{}, err
	}
	logf("manifest written (%d segments): %s", len(res.Manifest.Segments), manifestPath)

	return RunResult{
		Manifest:     res.Manifest,
		TeaserPath:   res.TeaserPath,
		ManifestPath: manifestPath,
		OutDir:       runOutDir,
	}, nil
}

func validatePrefs(cfg *config.Config, prefs types.Preferences) error {
	minDur := time.Duration(cfg.Teaser.MinSeconds) * time.Second
	maxDur := time.Duration(cfg.Teaser.MaxSeconds) * time.Second
	if prefs.Duration < minDur || prefs.Duration > maxDur {
		return fmt.Errorf("teaser duration %s outside [%s, %s]", prefs.Duration, minDur, maxDur)
	}
	if prefs.Branding.LogoPath != "" {
		if _, err := os.Stat(prefs.Branding.LogoPath); err != nil {
			return fmt.Errorf("stat logo: %w", err)
		}
	}
	if prefs.MusicPath != "" {
		if _, err := os.Stat(prefs.MusicPath); err != nil {
			return fmt.Errorf("stat music: %w", err)
		}
	}
	return nil
}

func buildAI(cfg *config.Config) (ports.HighlightRanker, ports.CaptionWriter, error) {
	switch cfg.AI.Provider {
	case "gemini":
		a, err := gemini.New(cfg.AI.GeminiAPIKeys, cfg.AI.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	default:
		if cfg.AI.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required (set it in .env or the environment)")
		}
		a := openai.New(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel, cfg.AI.OpenAIBaseURL)
		return a, a, nil
	}
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool       = (*ffmpeg.Adapter)(nil)
	_ ports.ASR             = (*whispercpp.Adapter)(nil)
	_ ports.HighlightRanker = (*openai.Adapter)(nil)
	_ ports.CaptionWriter   = (*openai.Adapter)(nil)
	_ ports.HighlightRanker = (*gemini.Adapter)(nil)
	_ ports.CaptionWriter   = (*gemini.Adapter)(nil)
	_ ports.Downloader      = (*ytdlp.Adapter)(nil)
)
