package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/ports"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

type fakeVideoTool struct {
	renderOpts ports.RenderOptions
	cuts       int
}

func (f *fakeVideoTool) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (f *fakeVideoTool) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	return 5 * time.Minute, nil
}

func (f *fakeVideoTool) CutSegment(ctx context.Context, in string, start, end time.Duration, out string) error {
	f.cuts++
	return os.WriteFile(out, []byte("seg"), 0o644)
}

func (f *fakeVideoTool) Concat(ctx context.Context, parts []string, out string) error {
	return os.WriteFile(out, []byte("joined"), 0o644)
}

func (f *fakeVideoTool) Render(ctx context.Context, in, out string, opts ports.RenderOptions) error {
	f.renderOpts = opts
	return os.WriteFile(out, []byte("teaser"), 0o644)
}

type fakeASR struct{ tr types.Transcript }

func (f fakeASR) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	return f.tr, nil
}

type fakeRanker struct{ hls []types.Highlight }

func (f fakeRanker) Refine(ctx context.Context, tr types.Transcript, cands []types.Candidate, tone types.Tone, maxHighlights int, minClip, maxClip time.Duration) ([]types.Highlight, error) {
	return f.hls, nil
}

type fakeCaption struct{ caption string }

func (f fakeCaption) Caption(ctx context.Context, tone types.Tone, summary string) (string, error) {
	return f.caption, nil
}

func testTranscript() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 10, Text: "How to get started with step 1.", Words: []types.Word{
			{Start: 0, End: 2, Word: "How"},
			{Start: 2, End: 4, Word: "to"},
			{Start: 4, End: 6, Word: "get"},
			{Start: 6, End: 8, Word: "started."},
		}},
		{Start: 10, End: 20, Text: "This is the important part."},
	}}
}

func TestRun_SubtitlesToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		subtitles bool
	}{
		{name: "disabled", subtitles: false},
		{name: "enabled", subtitles: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tmp := t.TempDir()
			cacheDir := filepath.Join(tmp, "cache")
			outDir := filepath.Join(tmp, "out")
			for _, d := range []string{cacheDir, outDir} {
				if err := os.MkdirAll(d, 0o755); err != nil {
					t.Fatalf("mkdir %s: %v", d, err)
				}
			}

			video := &fakeVideoTool{}
			uc := New(Deps{
				Video: video,
				ASR:   fakeASR{tr: testTranscript()},
				Ranker: fakeRanker{hls: []types.Highlight{
					{Start: 0, End: 8 * time.Second, Title: "intro", Summary: "getting started", Score: 5},
				}},
				Caption: fakeCaption{caption: "Watch this."},
			})

			res, err := uc.Run(context.Background(), Input{
				Video: filepath.Join(tmp, "in.mp4"),
				Prefs: types.Preferences{
					Duration:  30 * time.Second,
					Tone:      types.ToneProfessional,
					Subtitles: tc.subtitles,
				},
				MinSegment: 3 * time.Second,
				MaxSegment: 15 * time.Second,
				CacheDir:   cacheDir,
				OutDir:     outDir,
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			wantTeaser := filepath.Join(outDir, "teaser_professional_30s.mp4")
			if res.TeaserPath != wantTeaser {
				t.Fatalf("teaser path = %s, want %s", res.TeaserPath, wantTeaser)
			}
			if _, err := os.Stat(wantTeaser); err != nil {
				t.Fatalf("teaser not written: %v", err)
			}

			assPath := filepath.Join(outDir, "subtitles.ass")
			_, assErr := os.Stat(assPath)
			if tc.subtitles && assErr != nil {
				t.Fatalf("expected subtitles.ass: %v", assErr)
			}
			if !tc.subtitles && assErr == nil {
				t.Fatalf("did not expect subtitles.ass")
			}
			if tc.subtitles && video.renderOpts.BurnASS != assPath {
				t.Fatalf("expected ASS burn-in, got %q", video.renderOpts.BurnASS)
			}

			if res.Manifest.Caption != "Watch this." {
				t.Fatalf("manifest caption = %q", res.Manifest.Caption)
			}
			if len(res.Manifest.Segments) != 1 {
				t.Fatalf("expected 1 manifest segment, got %d", len(res.Manifest.Segments))
			}
			if res.Manifest.Segments[0].Summary != "getting started" {
				t.Fatalf("segment summary = %q", res.Manifest.Segments[0].Summary)
			}
			if video.cuts != 1 {
				t.Fatalf("expected 1 cut segment, got %d", video.cuts)
			}
		})
	}
}

func TestRun_BrandingReachesRenderer(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	video := &fakeVideoTool{}
	uc := New(Deps{
		Video: video,
		ASR:   fakeASR{tr: testTranscript()},
		Ranker: fakeRanker{hls: []types.Highlight{
			{Start: 0, End: 8 * time.Second, Score: 5},
		}},
		Caption: fakeCaption{caption: "c"},
	})

	_, err := uc.Run(context.Background(), Input{
		Video: filepath.Join(tmp, "in.mp4"),
		Prefs: types.Preferences{
			Duration: 30 * time.Second,
			Tone:     types.ToneExciting,
			Branding: types.Branding{LogoPath: "/assets/logo.png", Tagline: "Big Brand"},
		},
		MinSegment: 3 * time.Second,
		MaxSegment: 15 * time.Second,
		CacheDir:   tmp,
		OutDir:     tmp,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if video.renderOpts.LogoPath != "/assets/logo.png" {
		t.Fatalf("logo path = %q", video.renderOpts.LogoPath)
	}
	if video.renderOpts.Tagline != "Big Brand" {
		t.Fatalf("tagline = %q", video.renderOpts.Tagline)
	}
}

func TestMaxHighlightCount(t *testing.T) {
	tests := []struct {
		target     time.Duration
		minSegment time.Duration
		want       int
	}{
		{30 * time.Second, 3 * time.Second, 8},
		{30 * time.Second, 10 * time.Second, 3},
		{10 * time.Second, 15 * time.Second, 1},
		{0, 3 * time.Second, 3},
	}
	for _, tt := range tests {
		if got := maxHighlightCount(tt.target, tt.minSegment); got != tt.want {
			t.Fatalf("maxHighlightCount(%v, %v) = %d, want %d", tt.target, tt.minSegment, got, tt.want)
		}
	}
}

func TestPlanSummary_UsesHighlightSummaries(t *testing.T) {
	hls := []types.Highlight{
		{Start: 0, End: 5 * time.Second, Summary: "opening"},
		{Start: 10 * time.Second, End: 15 * time.Second, Summary: "closing"},
	}
	plan := types.TeaserPlan{Segments: []types.PlanSegment{
		{Start: 0, End: 5 * time.Second},
		{Start: 10 * time.Second, End: 15 * time.Second, Title: "fallback title"},
	}}
	got := planSummary(hls, plan)
	if !strings.Contains(got, "opening") || !strings.Contains(got, "closing") {
		t.Fatalf("summary = %q", got)
	}
}
