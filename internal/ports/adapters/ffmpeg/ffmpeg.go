package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// CutSegment extracts [start,end) with stream copy. Fast and lossless; frame
// accuracy is handled later by the re-encoding concat pass.
func (a *Adapter) CutSegment(ctx context.Context, in string, start, end time.Duration, out string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", in,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut segment: %w\n%s", err, string(b))
	}
	return nil
}

// Concat joins segment files via the concat demuxer and re-encodes to
// libx264/aac so the teaser plays back uniformly regardless of cut points.
func (a *Adapter) Concat(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return fmt.Errorf("ffmpeg concat: no segments")
	}

	listPath := out + ".concat.txt"
	var list strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve segment path %s: %w", p, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(abs))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

// Render applies the optional final-pass treatments: burned subtitles, logo
// overlay, tagline text and a background-music bed.
func (a *Adapter) Render(ctx context.Context, in, out string, opts ports.RenderOptions) error {
	args := buildRenderArgs(in, out, opts)
	if args == nil {
		// Nothing to apply; a plain copy keeps the call path uniform.
		args = []string{"-y", "-i", in, "-c", "copy", out}
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render: %w\n%s", err, string(b))
	}
	return nil
}

// buildRenderArgs assembles the filter graph for Render. Returns nil when no
// treatment is requested.
func buildRenderArgs(in, out string, opts ports.RenderOptions) []string {
	if opts.BurnASS == "" && opts.LogoPath == "" && opts.Tagline == "" && opts.MusicPath == "" {
		return nil
	}

	args := []string{"-y", "-i", in}

	logoInput := -1
	if opts.LogoPath != "" {
		logoInput = 1
		args = append(args, "-i", opts.LogoPath)
	}
	musicInput := -1
	if opts.MusicPath != "" {
		musicInput = logoInput + 1
		if logoInput < 0 {
			musicInput = 1
		}
		args = append(args, "-stream_loop", "-1", "-i", opts.MusicPath)
	}

	var filters []string
	vlabel := "[0:v]"
	step := 0
	next := func() string {
		step++
		return fmt.Sprintf("[v%d]", step)
	}

	if opts.BurnASS != "" {
		o := next()
		filters = append(filters, fmt.Sprintf("%ssubtitles=%s%s", vlabel, escapeFilterPath(opts.BurnASS), o))
		vlabel = o
	}
	if logoInput >= 0 {
		o := next()
		filters = append(filters,
			fmt.Sprintf("[%d:v]scale=-1:100[logo]", logoInput),
			fmt.Sprintf("%s[logo]overlay=24:24%s", vlabel, o),
		)
		vlabel = o
	}
	if opts.Tagline != "" {
		o := next()
		filters = append(filters, fmt.Sprintf(
			"%sdrawtext=text='%s':fontcolor=white:fontsize=36:box=1:boxcolor=black@0.5:boxborderw=8:x=(w-text_w)/2:y=40%s",
			vlabel, escapeDrawtext(opts.Tagline), o,
		))
		vlabel = o
	}

	alabel := "[0:a]"
	if musicInput >= 0 {
		// Music sits under the original audio; duration follows the teaser.
		filters = append(filters,
			fmt.Sprintf("[%d:a]volume=0.22[bg]", musicInput),
			fmt.Sprintf("%s[bg]amix=inputs=2:duration=first:dropout_transition=2[aout]", alabel),
		)
		alabel = "[aout]"
	}

	// Unfiltered streams are mapped by input specifier, not filter label.
	vmap, amap := vlabel, alabel
	if vmap == "[0:v]" {
		vmap = "0:v"
	}
	if amap == "[0:a]" {
		amap = "0:a"
	}

	if len(filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(filters, ";"))
	}
	args = append(args, "-map", vmap, "-map", amap)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		out,
	)
	return args
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
