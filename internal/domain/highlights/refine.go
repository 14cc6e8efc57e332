package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// SelectPromptCandidates picks up to limit distinct, high-scoring candidates
// to present to a ranker, returned in chronological order.
func SelectPromptCandidates(cands []types.Candidate, limit int) []types.Candidate {
	if len(cands) == 0 || limit <= 0 {
		return nil
	}

	best := make([]types.Candidate, len(cands))
	copy(best, cands)
	sort.Slice(best, func(i, j int) bool {
		s1 := best[i].InfoScore + best[i].HookScore
		s2 := best[j].InfoScore + best[j].HookScore
		if s1 == s2 {
			return best[i].Start < best[j].Start
		}
		return s1 > s2
	})

	out := make([]types.Candidate, 0, limit)
	for _, c := range best {
		if len(out) >= limit {
			break
		}
		if !isDistinctCandidate(out, c.Start, c.End, 2*time.Second) {
			continue
		}
		out = append(out, c)
	}

	if len(out) < limit {
		for _, c := range cands {
			if len(out) >= limit {
				break
			}
			if !isDistinctCandidate(out, c.Start, c.End, 2*time.Second) {
				continue
			}
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Fallback ranks candidates deterministically when a hosted ranker fails,
// so the pipeline still produces a teaser.
func Fallback(
	cands []types.Candidate,
	maxHighlights int,
	minClip, maxClip time.Duration,
	timing Timing,
) []types.Highlight {
	if maxHighlights <= 0 {
		return nil
	}

	best := make([]types.Candidate, len(cands))
	copy(best, cands)
	sort.Slice(best, func(i, j int) bool {
		s1 := best[i].InfoScore + best[i].HookScore
		s2 := best[j].InfoScore + best[j].HookScore
		if s1 == s2 {
			return best[i].Start < best[j].Start
		}
		return s1 > s2
	})

	out := make([]types.Highlight, 0, maxHighlights)
	for _, c := range best {
		if len(out) >= maxHighlights {
			break
		}
		st, en, ok := NormalizeWindow(c.Start, c.End, minClip, maxClip, timing)
		if !ok {
			continue
		}
		if !IsDistinct(out, st, en, 2*time.Second) {
			continue
		}
		summary := strings.TrimSpace(c.Text)
		if summary == "" {
			summary = "Highlight"
		}
		out = append(out, types.Highlight{
			Start:   st,
			End:     en,
			Title:   "Highlight",
			Summary: summary,
			Reason:  "fallback",
			Score:   c.InfoScore + c.HookScore,
		})
	}
	return out
}

// NormalizeRange validates a ranker-proposed window, falling back to the
// candidate at idx when the proposed times are unusable.
func NormalizeRange(
	idx int,
	startSec float64,
	endSec float64,
	cands []types.Candidate,
	minClip time.Duration,
	maxClip time.Duration,
	timing Timing,
) (time.Duration, time.Duration, bool) {
	st := time.Duration(startSec * float64(time.Second))
	en := time.Duration(endSec * float64(time.Second))
	if st < 0 {
		st = 0
	}

	if st, en, ok := NormalizeWindow(st, en, minClip, maxClip, timing); ok {
		return st, en, true
	}

	if idx < 0 || idx >= len(cands) {
		return 0, 0, false
	}
	return NormalizeWindow(cands[idx].Start, cands[idx].End, minClip, maxClip, timing)
}

// NormalizeWindow clamps a window to duration bounds and snaps its end to a
// natural stop (sentence ending or pause) when transcript timing allows.
func NormalizeWindow(
	st, en, minClip, maxClip time.Duration,
	timing Timing,
) (time.Duration, time.Duration, bool) {
	if en <= st {
		return 0, 0, false
	}
	maxEnd := st + maxClip
	if en > maxEnd {
		en = maxEnd
	}
	minEnd := st + minClip
	if en < minEnd {
		return 0, 0, false
	}

	smoothEnd := ChooseNaturalEnd(timing, st, en, minEnd, maxEnd)
	if smoothEnd < minEnd {
		return 0, 0, false
	}
	if smoothEnd > maxEnd {
		smoothEnd = maxEnd
	}
	en = smoothEnd

	return st, en, true
}

// CandidateScore returns the combined heuristic score of the candidate at idx.
func CandidateScore(idx int, cands []types.Candidate) float64 {
	if idx < 0 || idx >= len(cands) {
		return 0
	}
	return cands[idx].InfoScore + cands[idx].HookScore
}

// IsDistinct reports whether [st,en) stays at least minGap away from every
// already-selected highlight.
func IsDistinct(existing []types.Highlight, st, en, minGap time.Duration) bool {
	for _, e := range existing {
		if st < e.End+minGap && en > e.Start-minGap {
			return false
		}
	}
	return true
}

func isDistinctCandidate(existing []types.Candidate, st, en, minGap time.Duration) bool {
	for _, e := range existing {
		if st < e.End+minGap && en > e.Start-minGap {
			return false
		}
	}
	return true
}
