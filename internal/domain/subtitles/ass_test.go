package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

func TestRenderTeaserASS_KaraokeHasKTags(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 2, Words: []types.Word{{Start: 0.0, End: 0.3, Word: "Hello"}, {Start: 0.3, End: 0.8, Word: "world"}}},
	}}
	plan := types.TeaserPlan{Segments: []types.PlanSegment{
		{Start: 0, End: 2 * time.Second},
	}}
	ass, err := RenderTeaserASS(tr, plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ass, "{\\k") {
		t.Fatalf("expected karaoke tags in ASS, got:\n%s", ass)
	}
}

func TestRenderTeaserASS_SkipsWordsOutsidePlan(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 10, Words: []types.Word{
			{Start: 1, End: 2, Word: "keep"},
			{Start: 8, End: 9, Word: "drop"},
		}},
	}}
	plan := types.TeaserPlan{Segments: []types.PlanSegment{
		{Start: 0, End: 4 * time.Second},
	}}
	ass, err := RenderTeaserASS(tr, plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ass, "keep") {
		t.Fatalf("expected in-plan word, got:\n%s", ass)
	}
	if strings.Contains(ass, "drop") {
		t.Fatalf("expected out-of-plan word to be dropped, got:\n%s", ass)
	}
}

func TestRenderTeaserASS_FallsBackToPlainWithoutWords(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 3, Text: "no word timestamps here"},
	}}
	plan := types.TeaserPlan{Segments: []types.PlanSegment{
		{Start: 0, End: 3 * time.Second},
	}}
	ass, err := RenderTeaserASS(tr, plan)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(ass, "{\\k") {
		t.Fatalf("expected plain rendering, got karaoke:\n%s", ass)
	}
	if !strings.Contains(ass, "no word timestamps here") {
		t.Fatalf("expected segment text, got:\n%s", ass)
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
