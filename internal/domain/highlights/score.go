package highlights

import (
	"regexp"
	"strings"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

var (
	reNum     = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook    = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember)\b`)
	reHow     = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
	reStepNum = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
)

// toneCues bias scoring toward language that matches the requested delivery.
var toneCues = map[types.Tone][]string{
	types.ToneProfessional:  {"solution", "results", "efficiency", "strategy", "productivity", "data", "process"},
	types.ToneExciting:      {"amazing", "incredible", "insane", "wow", "unbelievable", "crazy", "huge", "finally"},
	types.ToneEducational:   {"learn", "understand", "explain", "example", "means", "because", "works", "concept"},
	types.ToneInspirational: {"believe", "dream", "achieve", "potential", "journey", "growth", "overcome", "possible"},
}

// Score returns (info, hook) in range [0..10] for the given tone.
func Score(text string, tone types.Tone) (float64, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}
	lower := strings.ToLower(t)

	// Lightweight heuristic on purpose: deterministic, cheap, and good enough
	// for candidate pre-ranking before the LLM makes final selections.
	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}
	// small length penalty
	info -= 0.0006 * float64(len([]rune(t)))

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(len(reStepNum.FindAllStringIndex(lower, -1))) * 0.4
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.3

	for _, cue := range toneCues[tone] {
		if strings.Contains(lower, cue) {
			hook += 0.5
		}
	}

	return clamp(info, 0, 10), clamp(hook, 0, 10)
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
