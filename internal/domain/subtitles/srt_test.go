package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

func TestRenderTeaserSRT_NumbersAndProjects(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 10, End: 12, Text: "first line"},
		{Start: 20, End: 25, Text: "skipped line"},
		{Start: 41, End: 43, Text: "second line"},
	}}
	got := RenderTeaserSRT(tr, twoSegmentPlan())

	if !strings.Contains(got, "1\n00:00:00,000 --> 00:00:02,000\nfirst line") {
		t.Fatalf("unexpected first event:\n%s", got)
	}
	if strings.Contains(got, "skipped line") {
		t.Fatalf("expected out-of-plan segment to be skipped:\n%s", got)
	}
	if !strings.Contains(got, "2\n00:00:06,000 --> 00:00:08,000\nsecond line") {
		t.Fatalf("unexpected second event:\n%s", got)
	}
}

func TestSrtTime_Format(t *testing.T) {
	got := srtTime(61*time.Second + 234*time.Millisecond)
	if got != "00:01:01,234" {
		t.Fatalf("unexpected srtTime: %s", got)
	}
}
