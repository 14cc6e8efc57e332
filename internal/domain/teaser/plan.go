// Package teaser assembles ranked highlights into a renderable plan.
package teaser

import (
	"fmt"
	"sort"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// Options bound the plan geometry.
type Options struct {
	Target     time.Duration // requested teaser duration
	SourceDur  time.Duration // probed source duration; 0 means unknown
	MinSegment time.Duration
	MaxSegment time.Duration
}

// Build selects highlights until the target duration is covered, then orders
// them chronologically. Segments are clamped to the source, deduplicated and
// trimmed so the plan never exceeds the target by more than one segment's
// minimum length.
func Build(hls []types.Highlight, opts Options) (types.TeaserPlan, error) {
	if opts.Target <= 0 {
		return types.TeaserPlan{}, fmt.Errorf("teaser plan: target duration must be > 0")
	}
	if opts.MinSegment <= 0 {
		opts.MinSegment = 2 * time.Second
	}
	if opts.MaxSegment <= 0 || opts.MaxSegment < opts.MinSegment {
		opts.MaxSegment = opts.Target
	}

	ranked := make([]types.Highlight, len(hls))
	copy(ranked, hls)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].Start < ranked[j].Start
		}
		return ranked[i].Score > ranked[j].Score
	})

	var picked []types.PlanSegment
	var total time.Duration
	for _, h := range ranked {
		seg, ok := clampSegment(h, opts)
		if !ok {
			continue
		}
		if overlapsAny(picked, seg) {
			continue
		}

		remaining := opts.Target - total
		if remaining < opts.MinSegment {
			break
		}
		if seg.End-seg.Start > remaining {
			seg.End = seg.Start + remaining
			if seg.End-seg.Start < opts.MinSegment {
				continue
			}
		}

		picked = append(picked, seg)
		total += seg.End - seg.Start
	}

	if len(picked) == 0 {
		return types.TeaserPlan{}, fmt.Errorf("teaser plan: no usable highlights for a %s teaser", opts.Target)
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].Start < picked[j].Start })
	return types.TeaserPlan{Segments: picked}, nil
}

// OutputName returns the teaser file name, matching the historical
// teaser_{tone}_{duration}s.mp4 convention.
func OutputName(tone types.Tone, target time.Duration) string {
	return fmt.Sprintf("teaser_%s_%ds.mp4", tone, int(target.Seconds()))
}

func clampSegment(h types.Highlight, opts Options) (types.PlanSegment, bool) {
	start, end := h.Start, h.End
	if start < 0 {
		start = 0
	}
	if opts.SourceDur > 0 && end > opts.SourceDur {
		end = opts.SourceDur
	}
	if end <= start {
		return types.PlanSegment{}, false
	}
	if end-start > opts.MaxSegment {
		end = start + opts.MaxSegment
	}
	if end-start < opts.MinSegment {
		return types.PlanSegment{}, false
	}
	return types.PlanSegment{Start: start, End: end, Title: h.Title}, true
}

func overlapsAny(existing []types.PlanSegment, seg types.PlanSegment) bool {
	const gap = time.Second
	for _, e := range existing {
		if seg.Start < e.End+gap && seg.End > e.Start-gap {
			return true
		}
	}
	return false
}
