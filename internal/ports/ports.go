package ports

import (
	"context"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// RenderOptions describes the optional final-pass treatments applied to the
// concatenated teaser.
type RenderOptions struct {
	BurnASS   string
	LogoPath  string
	Tagline   string
	MusicPath string
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
	CutSegment(ctx context.Context, in string, start, end time.Duration, out string) error
	Concat(ctx context.Context, parts []string, out string) error
	Render(ctx context.Context, in, out string, opts RenderOptions) error
}

type Downloader interface {
	// Download fetches the video behind url into destDir and returns the
	// local file path. progress may be nil.
	Download(ctx context.Context, url, destDir string, progress func(pct float64)) (string, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

type HighlightRanker interface {
	Refine(
		ctx context.Context,
		tr types.Transcript,
		cands []types.Candidate,
		tone types.Tone,
		maxHighlights int,
		minClip time.Duration,
		maxClip time.Duration,
	) ([]types.Highlight, error)
}

type CaptionWriter interface {
	// Caption produces social-media copy for the teaser. summary gives the
	// writer context about what made it into the final cut.
	Caption(ctx context.Context, tone types.Tone, summary string) (string, error)
}
