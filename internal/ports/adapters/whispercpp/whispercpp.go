// Package whispercpp adapts a local whisper.cpp binary to the ASR port.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// errorTailLines bounds how much tool output an error carries; whisper.cpp
// prints a long model-load banner before the actual failure.
const errorTailLines = 20

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp over wavPath, writing its JSON output into the
// run cache. Word timestamps are kept for karaoke subtitle timing.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if _, err := os.Stat(a.model); err != nil {
		return types.Transcript{}, fmt.Errorf("whisper model %s: %w", a.model, err)
	}

	outPrefix := filepath.Join(cacheDir, "transcript")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-owts",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, tailLines(string(b), errorTailLines))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript: %w", err)
	}
	return normalize(tr), nil
}

// normalize trims whisper's padded text, drops empty segments and clamps
// word spans to their segment so downstream scoring never sees inverted or
// out-of-segment ranges.
func normalize(tr types.Transcript) types.Transcript {
	out := types.Transcript{Segments: make([]types.Segment, 0, len(tr.Segments))}
	for _, seg := range tr.Segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}

		words := make([]types.Word, 0, len(seg.Words))
		for _, w := range seg.Words {
			w.Word = strings.TrimSpace(w.Word)
			if w.Word == "" {
				continue
			}
			if w.Start < seg.Start {
				w.Start = seg.Start
			}
			if w.End > seg.End {
				w.End = seg.End
			}
			if w.End < w.Start {
				w.End = w.Start
			}
			words = append(words, w)
		}
		if len(words) == 0 {
			seg.Words = nil
		} else {
			seg.Words = words
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

func tailLines(s string, n int) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
