package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

type Timing struct {
	words   []timedWord
	segEnds []time.Duration
}

func CollectTiming(tr types.Transcript) Timing {
	t := Timing{
		words:   make([]timedWord, 0, 1024),
		segEnds: make([]time.Duration, 0, len(tr.Segments)),
	}
	for _, s := range tr.Segments {
		se := dur(s.End)
		if se > 0 {
			t.segEnds = append(t.segEnds, se)
		}
		for _, w := range s.Words {
			ws := dur(w.Start)
			we := dur(w.End)
			if we <= ws {
				continue
			}
			txt := strings.TrimSpace(w.Word)
			if txt == "" {
				continue
			}
			t.words = append(t.words, timedWord{Start: ws, End: we, Text: txt})
		}
	}
	sort.Slice(t.words, func(i, j int) bool {
		if t.words[i].Start == t.words[j].Start {
			return t.words[i].End < t.words[j].End
		}
		return t.words[i].Start < t.words[j].Start
	})
	sort.Slice(t.segEnds, func(i, j int) bool {
		return t.segEnds[i] < t.segEnds[j]
	})
	return t
}

// ChooseNaturalEnd prefers a natural stop close to the requested end (sentence
// ending or a pause) while respecting duration limits.
func ChooseNaturalEnd(
	t Timing,
	start, requestedEnd, minEnd, maxEnd time.Duration,
) time.Duration {
	if requestedEnd < minEnd {
		requestedEnd = minEnd
	}
	if requestedEnd > maxEnd {
		requestedEnd = maxEnd
	}

	// Allow tiny extension to finish the current sentence if headroom exists.
	searchEnd := requestedEnd
	extend := 2 * time.Second
	if searchEnd+extend < maxEnd {
		searchEnd += extend
	} else {
		searchEnd = maxEnd
	}

	// 1) Score sentence boundaries and choose the most complete logical ending.
	if end, ok := bestSentenceEnd(t.words, start, requestedEnd, minEnd, searchEnd); ok {
		return end
	}

	// 2) Fallback to a pause boundary.
	const pauseThreshold = 350 * time.Millisecond
	pauseLookback := 8 * time.Second
	pauseStart := searchEnd - pauseLookback
	if pauseStart < minEnd {
		pauseStart = minEnd
	}
	var (
		bestPause    time.Duration
		bestPauseEnd time.Duration
	)
	for i := 0; i+1 < len(t.words); i++ {
		cur := t.words[i]
		next := t.words[i+1]
		if cur.End < pauseStart || cur.End > searchEnd {
			continue
		}
		if next.Start <= cur.End {
			continue
		}
		pause := next.Start - cur.End
		if pause >= pauseThreshold && pause > bestPause {
			bestPause = pause
			bestPauseEnd = cur.End
		}
	}
	if bestPauseEnd >= minEnd {
		return bestPauseEnd
	}

	// 3) Latest segment end before tail.
	var segEnd time.Duration
	for _, se := range t.segEnds {
		if se < minEnd || se > searchEnd {
			continue
		}
		if se > segEnd {
			segEnd = se
		}
	}
	if segEnd >= minEnd {
		return segEnd
	}

	// 4) Latest known word end.
	var wordEnd time.Duration
	for _, w := range t.words {
		if w.End < minEnd || w.End > searchEnd {
			continue
		}
		if w.End > wordEnd {
			wordEnd = w.End
		}
	}
	if wordEnd >= minEnd {
		return wordEnd
	}

	return requestedEnd
}

type sentenceEndCandidate struct {
	End         time.Duration
	Words       int
	LastWord    string
	Sentence    string
	NextWord    string
	PauseAfter  time.Duration
	HasTerminal bool
}

func bestSentenceEnd(
	words []timedWord,
	clipStart, requestedEnd, minEnd, searchEnd time.Duration,
) (time.Duration, bool) {
	cands := collectSentenceEndCandidates(words, clipStart, minEnd, searchEnd)
	if len(cands) == 0 {
		return 0, false
	}

	bestIdx := -1
	bestScore := -1e9
	for i := range cands {
		score := scoreSentenceEnd(cands[i], requestedEnd)
		if score > bestScore || (score == bestScore && cands[i].End > cands[bestIdx].End) {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return cands[bestIdx].End, true
}

func collectSentenceEndCandidates(
	words []timedWord,
	clipStart, minEnd, searchEnd time.Duration,
) []sentenceEndCandidate {
	out := make([]sentenceEndCandidate, 0, 16)
	for i := range words {
		w := words[i]
		if w.End < minEnd || w.End > searchEnd || !hasTerminalPunctuation(w.Text) {
			continue
		}

		sentenceStartIdx := 0
		for j := i - 1; j >= 0; j-- {
			if words[j].End <= clipStart {
				sentenceStartIdx = j + 1
				break
			}
			if hasTerminalPunctuation(words[j].Text) {
				sentenceStartIdx = j + 1
				break
			}
		}

		parts := make([]string, 0, i-sentenceStartIdx+1)
		lastWord := ""
		wordCount := 0
		for k := sentenceStartIdx; k <= i; k++ {
			if words[k].End <= clipStart {
				continue
			}
			txt := strings.TrimSpace(words[k].Text)
			if txt == "" {
				continue
			}
			parts = append(parts, txt)
			norm := normalizeToken(txt)
			if norm != "" {
				wordCount++
				lastWord = norm
			}
		}
		if len(parts) == 0 {
			continue
		}

		nextWord := ""
		pauseAfter := time.Duration(0)
		if i+1 < len(words) {
			if words[i+1].Start > w.End {
				pauseAfter = words[i+1].Start - w.End
			}
			nextWord = normalizeToken(words[i+1].Text)
		}

		out = append(out, sentenceEndCandidate{
			End:         w.End,
			Words:       wordCount,
			LastWord:    lastWord,
			Sentence:    strings.ToLower(strings.Join(parts, " ")),
			NextWord:    nextWord,
			PauseAfter:  pauseAfter,
			HasTerminal: true,
		})
	}
	return out
}

func scoreSentenceEnd(c sentenceEndCandidate, requestedEnd time.Duration) float64 {
	// Keep close to the model-requested end unless a later/earlier boundary is
	// clearly better.
	distScore := -0.30 * absDuration(c.End-requestedEnd).Seconds()
	score := distScore
	hasClosure := hasClosureCue(c.Sentence)

	switch {
	case c.Words >= 8:
		score += 1.1
	case c.Words >= 5:
		score += 0.5
	case c.Words < 4:
		score -= 0.8
	}

	switch {
	case c.PauseAfter >= 450*time.Millisecond:
		score += 1.0
	case c.PauseAfter >= 250*time.Millisecond:
		score += 0.4
	case c.PauseAfter < 120*time.Millisecond:
		score -= 0.35
	}

	if hasClosure {
		score += 1.1
	}
	if isDanglingTail(c.LastWord) {
		score -= 2.0
	}
	if strings.HasSuffix(c.Sentence, "?") && c.PauseAfter < 450*time.Millisecond {
		score -= 2.4
	}
	if isContinuationStart(c.NextWord) && c.PauseAfter < 350*time.Millisecond {
		score -= 0.8
	}
	if c.PauseAfter < 120*time.Millisecond && c.NextWord != "" {
		score -= 0.8
	}
	if c.Words < 5 && !hasClosure && c.PauseAfter < 200*time.Millisecond {
		score -= 0.9
	}

	return score
}

func hasClosureCue(s string) bool {
	cues := []string{
		"that's it",
		"that is it",
		"that's why",
		"that's how",
		"there you go",
		"we're out",
		"we are out",
		"i'm out",
		"i am out",
		"goodbye",
		"finally",
		"done",
		"finished",
		"let's go",
		"lets go",
		"we won",
		"i won",
		"you won",
		"we did it",
	}
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

func isDanglingTail(lastWord string) bool {
	if lastWord == "" {
		return true
	}
	switch lastWord {
	case "and", "but", "or", "so", "because", "if", "when", "then",
		"to", "of", "for", "with", "from", "into", "onto",
		"the", "a", "an", "this", "that", "these", "those",
		"my", "your", "our", "their", "his", "her", "its":
		return true
	default:
		return false
	}
}

func isContinuationStart(word string) bool {
	switch word {
	case "and", "but", "or", "so", "because", "then", "if", "when", "while", "that":
		return true
	default:
		return false
	}
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	trimRunes := `"'` + "`" + "[](){}.,!?;:"
	s = strings.Trim(s, trimRunes)
	return s
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	trimTail := `"'` + "`" + ")]}"
	for len(s) > 0 && strings.ContainsRune(trimTail, rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?'
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
