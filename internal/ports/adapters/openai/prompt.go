package openai

import (
	"fmt"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

func refinePrompt(tone types.Tone, candsJSON []byte) string {
	return "Select the best teaser highlights from the candidate list. " +
		"Return strictly valid JSON (no markdown, no code fences) of the form " +
		`{"highlights":[{"idx":0,"start_sec":0,"end_sec":0,"title":"","summary":"","tags":[],"reason":""}]}. ` +
		"Prefer moments that are both informative and hooky, and match a " + string(tone) + " tone. " +
		"Highlights must be distinct scenes with no overlaps and can be anywhere from 0 to maxHighlights total. " +
		"Each highlight duration must be between minSec and maxSec. " +
		"Highlights must start cleanly and end on a complete thought, ideally right after a payoff or hook explanation." +
		"\n\nCandidates JSON:\n" + string(candsJSON)
}

func captionPrompt(tone types.Tone, summary string) string {
	return fmt.Sprintf(
		"Write one social-media caption for a short teaser video. Tone: %s. "+
			"Keep it under 220 characters, end with two or three fitting hashtags, "+
			"and return only the caption text.\n\nWhat the teaser shows:\n%s",
		tone, summary,
	)
}
