package subtitles

import (
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// Timeline maps source-video time onto the concatenated teaser, whose
// segments are no longer contiguous in source time.
type Timeline struct {
	spans []span
}

type span struct {
	srcStart time.Duration
	srcEnd   time.Duration
	outStart time.Duration
}

func NewTimeline(plan types.TeaserPlan) Timeline {
	spans := make([]span, 0, len(plan.Segments))
	var off time.Duration
	for _, s := range plan.Segments {
		if s.End <= s.Start {
			continue
		}
		spans = append(spans, span{srcStart: s.Start, srcEnd: s.End, outStart: off})
		off += s.End - s.Start
	}
	return Timeline{spans: spans}
}

// Duration returns the total teaser duration.
func (t Timeline) Duration() time.Duration {
	if len(t.spans) == 0 {
		return 0
	}
	last := t.spans[len(t.spans)-1]
	return last.outStart + (last.srcEnd - last.srcStart)
}

// Project maps the source interval [ws,we) into teaser time, clipping it to
// the span it overlaps. Intervals outside every span report ok=false.
func (t Timeline) Project(ws, we time.Duration) (time.Duration, time.Duration, bool) {
	for _, sp := range t.spans {
		if we <= sp.srcStart || ws >= sp.srcEnd {
			continue
		}
		if ws < sp.srcStart {
			ws = sp.srcStart
		}
		if we > sp.srcEnd {
			we = sp.srcEnd
		}
		return sp.outStart + (ws - sp.srcStart), sp.outStart + (we - sp.srcStart), true
	}
	return 0, 0, false
}
