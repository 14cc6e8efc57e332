package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/domain/highlights"
	"github.com/Siddharth-vip/teasergen/internal/domain/subtitles"
	"github.com/Siddharth-vip/teasergen/internal/domain/teaser"
	"github.com/Siddharth-vip/teasergen/internal/ports"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

type Deps struct {
	Video   ports.VideoTool
	ASR     ports.ASR
	Ranker  ports.HighlightRanker
	Caption ports.CaptionWriter
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	Video      string
	Prefs      types.Preferences
	MinSegment time.Duration
	MaxSegment time.Duration
	CacheDir   string
	OutDir     string
	Logf       func(format string, args ...any)
	Progress   func(stage string, pct float64)
}

type Result struct {
	Manifest   types.Manifest
	TeaserPath string
}

// Stage names reported through Input.Progress.
const (
	StageTranscribe = "transcribing"
	StageAnalyze    = "analyzing"
	StageRender     = "rendering"
)

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	progress := in.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	srcDur, err := u.d.Video.ProbeDuration(ctx, in.Video)
	if err != nil {
		return Result{}, err
	}
	logf("source duration: %s", srcDur.Round(time.Second))

	progress(StageTranscribe, 0)
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.Video, wav); err != nil {
		return Result{}, err
	}
	progress(StageTranscribe, 30)

	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return Result{}, err
	}
	logf("transcript: %d segments", len(tr.Segments))
	progress(StageTranscribe, 100)

	progress(StageAnalyze, 0)
	cands := highlights.BuildCandidates(tr, in.Prefs.Tone, in.MinSegment, in.MaxSegment)
	if len(cands) == 0 {
		return Result{}, fmt.Errorf("no highlight candidates found in transcript")
	}
	logf("candidates: %d", len(cands))

	maxHighlights := maxHighlightCount(in.Prefs.Duration, in.MinSegment)
	hls, err := u.d.Ranker.Refine(ctx, tr, cands, in.Prefs.Tone, maxHighlights, in.MinSegment, in.MaxSegment)
	if err != nil {
		return Result{}, err
	}
	if len(hls) == 0 {
		return Result{}, fmt.Errorf("ranker returned no highlights")
	}
	logf("highlights: %d", len(hls))
	progress(StageAnalyze, 60)

	plan, err := teaser.Build(hls, teaser.Options{
		Target:     in.Prefs.Duration,
		SourceDur:  srcDur,
		MinSegment: in.MinSegment,
		MaxSegment: in.MaxSegment,
	})
	if err != nil {
		return Result{}, err
	}
	logf("plan: %d segments, %s total", len(plan.Segments), plan.Duration().Round(time.Second))
	progress(StageAnalyze, 100)

	progress(StageRender, 0)
	teaserPath, assPath, srtPath, err := u.render(ctx, in, tr, plan, progress)
	if err != nil {
		return Result{}, err
	}
	progress(StageRender, 100)

	caption, err := u.d.Caption.Caption(ctx, in.Prefs.Tone, planSummary(hls, plan))
	if err != nil {
		return Result{}, fmt.Errorf("generate caption: %w", err)
	}

	m := types.Manifest{
		Input:       in.Video,
		Tone:        string(in.Prefs.Tone),
		DurationSec: plan.Duration().Seconds(),
		Teaser:      filepath.Base(teaserPath),
		Caption:     caption,
	}
	if assPath != "" {
		m.Subtitles = filepath.Base(assPath)
	}
	if srtPath != "" {
		m.SRT = filepath.Base(srtPath)
	}
	for i, seg := range plan.Segments {
		ms := types.ManifestSegment{
			ID:       fmt.Sprintf("%03d", i+1),
			StartSec: seg.Start.Seconds(),
			EndSec:   seg.End.Seconds(),
			Title:    seg.Title,
		}
		if h, ok := matchHighlight(hls, seg); ok {
			ms.Summary = h.Summary
			ms.Tags = h.Tags
			ms.Reason = h.Reason
		}
		m.Segments = append(m.Segments, ms)
	}

	return Result{Manifest: m, TeaserPath: teaserPath}, nil
}

// render cuts the plan segments, concatenates them and applies the final
// treatments. Returns teaser, ASS and SRT paths (subtitle paths empty when
// subtitles are off).
func (u Usecase) render(
	ctx context.Context,
	in Input,
	tr types.Transcript,
	plan types.TeaserPlan,
	progress func(stage string, pct float64),
) (string, string, string, error) {
	segDir := filepath.Join(in.CacheDir, "segments")
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return "", "", "", err
	}

	parts := make([]string, 0, len(plan.Segments))
	for i, seg := range plan.Segments {
		part := filepath.Join(segDir, fmt.Sprintf("seg-%03d.mp4", i+1))
		if err := u.d.Video.CutSegment(ctx, in.Video, seg.Start, seg.End, part); err != nil {
			return "", "", "", err
		}
		parts = append(parts, part)
		progress(StageRender, float64(i+1)/float64(len(plan.Segments)+2)*100)
	}

	joined := filepath.Join(in.CacheDir, "joined.mp4")
	if err := u.d.Video.Concat(ctx, parts, joined); err != nil {
		return "", "", "", err
	}

	var assPath, srtPath string
	if in.Prefs.Subtitles {
		ass, err := subtitles.RenderTeaserASS(tr, plan)
		if err != nil {
			return "", "", "", err
		}
		assPath = filepath.Join(in.OutDir, "subtitles.ass")
		if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
			return "", "", "", err
		}
		srtPath = filepath.Join(in.OutDir, "subtitles.srt")
		if err := os.WriteFile(srtPath, []byte(subtitles.RenderTeaserSRT(tr, plan)), 0o644); err != nil {
			return "", "", "", err
		}
	}

	out := filepath.Join(in.OutDir, teaser.OutputName(in.Prefs.Tone, in.Prefs.Duration))
	opts := ports.RenderOptions{
		BurnASS:   assPath,
		LogoPath:  in.Prefs.Branding.LogoPath,
		Tagline:   in.Prefs.Branding.Tagline,
		MusicPath: in.Prefs.MusicPath,
	}
	if err := u.d.Video.Render(ctx, joined, out, opts); err != nil {
		return "", "", "", err
	}
	return out, assPath, srtPath, nil
}

// maxHighlightCount bounds how many highlights the ranker should return: at
// most one per minimum-length segment, capped to keep teasers cohesive.
func maxHighlightCount(target, minSegment time.Duration) int {
	if target <= 0 || minSegment <= 0 {
		return 3
	}
	n := int(target / minSegment)
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

func planSummary(hls []types.Highlight, plan types.TeaserPlan) string {
	var parts []string
	for _, seg := range plan.Segments {
		if h, ok := matchHighlight(hls, seg); ok && h.Summary != "" {
			parts = append(parts, h.Summary)
			continue
		}
		if seg.Title != "" {
			parts = append(parts, seg.Title)
		}
	}
	return strings.Join(parts, " ")
}

func matchHighlight(hls []types.Highlight, seg types.PlanSegment) (types.Highlight, bool) {
	for _, h := range hls {
		if h.Start == seg.Start {
			return h, true
		}
	}
	return types.Highlight{}, false
}
