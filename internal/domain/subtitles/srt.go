package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// RenderTeaserSRT renders a plain SRT sidecar for the teaser. Events come
// from transcript segments projected through the plan timeline.
func RenderTeaserSRT(tr types.Transcript, plan types.TeaserPlan) string {
	tl := NewTimeline(plan)

	var b strings.Builder
	n := 0
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		os, oe, ok := tl.Project(dur(s.Start), dur(s.End))
		if !ok || oe <= os {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", n, srtTime(os), srtTime(oe), text)
	}
	return b.String()
}

func srtTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
