// Package gemini adapts the Gemini API to the highlight-ranking and
// caption-writing ports.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/Siddharth-vip/teasergen/internal/domain/highlights"
	"github.com/Siddharth-vip/teasergen/internal/ports/adapters/openai"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

type Adapter struct {
	model string

	mu         sync.Mutex
	apiKeys    []string
	currentKey int
}

func New(apiKeys []string, model string) (*Adapter, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("gemini: at least one API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Adapter{apiKeys: apiKeys, model: model}, nil
}

func (a *Adapter) Refine(
	ctx context.Context,
	tr types.Transcript,
	cands []types.Candidate,
	tone types.Tone,
	maxHighlights int,
	minClip time.Duration,
	maxClip time.Duration,
) ([]types.Highlight, error) {
	if maxHighlights <= 0 || len(cands) == 0 {
		return nil, nil
	}
	if maxClip <= 0 || maxClip < minClip {
		return nil, nil
	}
	timing := highlights.CollectTiming(tr)

	top := highlights.SelectPromptCandidates(cands, 80)
	if len(top) == 0 {
		return nil, nil
	}

	prompt, err := refinePrompt(top, tone, maxHighlights, minClip, maxClip)
	if err != nil {
		return nil, err
	}

	content, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini refine: %w", err)
	}

	res := parseHighlights(content, top, maxHighlights, minClip, maxClip, timing)
	if len(res) == 0 {
		res = highlights.Fallback(top, maxHighlights, minClip, maxClip, timing)
	}
	if len(res) > maxHighlights {
		res = res[:maxHighlights]
	}
	return res, nil
}

func (a *Adapter) Caption(ctx context.Context, tone types.Tone, summary string) (string, error) {
	prompt := fmt.Sprintf(
		"Write one social-media caption for a short teaser video. Tone: %s. "+
			"Keep it under 220 characters, end with two or three fitting hashtags, "+
			"and return only the caption text.\n\nWhat the teaser shows:\n%s",
		tone, summary,
	)
	content, err := a.generate(ctx, prompt)
	if err != nil {
		return openai.FallbackCaption(tone), nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return openai.FallbackCaption(tone), nil
	}
	return content, nil
}

// generate calls the model, rotating API keys on quota errors.
func (a *Adapter) generate(ctx context.Context, prompt string) (string, error) {
	attempts := len(a.apiKeys)
	var lastErr error

	for range attempts {
		key := a.currentAPIKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			a.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
		if err != nil {
			msg := err.Error()
			if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
				a.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text strings.Builder
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				return text.String(), nil
			}
		}
		lastErr = errors.New("empty response")
		a.rotateKey()
	}

	if lastErr == nil {
		lastErr = errors.New("no usable API key")
	}
	return "", lastErr
}

func (a *Adapter) currentAPIKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apiKeys[a.currentKey]
}

func (a *Adapter) rotateKey() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentKey = (a.currentKey + 1) % len(a.apiKeys)
}

func refinePrompt(top []types.Candidate, tone types.Tone, maxHighlights int, minClip, maxClip time.Duration) (string, error) {
	type cand struct {
		Idx      int     `json:"idx"`
		StartSec float64 `json:"start_sec"`
		EndSec   float64 `json:"end_sec"`
		Text     string  `json:"text"`
		Info     float64 `json:"info"`
		Hook     float64 `json:"hook"`
	}
	arr := make([]cand, 0, len(top))
	for i, c := range top {
		arr = append(arr, cand{Idx: i, StartSec: c.Start.Seconds(), EndSec: c.End.Seconds(), Text: c.Text, Info: c.InfoScore, Hook: c.HookScore})
	}
	pb, err := json.Marshal(map[string]any{
		"tone":          string(tone),
		"maxHighlights": maxHighlights,
		"minSec":        minClip.Seconds(),
		"maxSec":        maxClip.Seconds(),
		"candidates":    arr,
	})
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	return "Select the best teaser highlights from the candidate list. " +
		"Return strictly valid JSON (no markdown, no code fences) of the form " +
		`{"highlights":[{"idx":0,"start_sec":0,"end_sec":0,"title":"","summary":"","tags":[],"reason":""}]}. ` +
		"Prefer moments that are both informative and hooky, and match a " + string(tone) + " tone. " +
		"Highlights must be distinct scenes with no overlaps. " +
		"Each highlight duration must be between minSec and maxSec." +
		"\n\nCandidates JSON:\n" + string(pb), nil
}

func parseHighlights(
	content string,
	top []types.Candidate,
	maxHighlights int,
	minClip, maxClip time.Duration,
	timing highlights.Timing,
) []types.Highlight {
	t := strings.TrimSpace(content)
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return nil
	}

	var out struct {
		Highlights []struct {
			Idx      int      `json:"idx"`
			StartSec float64  `json:"start_sec"`
			EndSec   float64  `json:"end_sec"`
			Title    string   `json:"title"`
			Summary  string   `json:"summary"`
			Tags     []string `json:"tags"`
			Reason   string   `json:"reason"`
		} `json:"highlights"`
	}
	if err := json.Unmarshal([]byte(t[start:end+1]), &out); err != nil {
		return nil
	}

	res := make([]types.Highlight, 0, maxHighlights)
	for _, h := range out.Highlights {
		st, en, ok := highlights.NormalizeRange(h.Idx, h.StartSec, h.EndSec, top, minClip, maxClip, timing)
		if !ok {
			continue
		}
		if !highlights.IsDistinct(res, st, en, 2*time.Second) {
			continue
		}
		title := strings.TrimSpace(h.Title)
		if title == "" {
			title = "Highlight"
		}
		summary := strings.TrimSpace(h.Summary)
		if summary == "" {
			summary = title
		}
		res = append(res, types.Highlight{
			Start:   st,
			End:     en,
			Title:   title,
			Summary: summary,
			Tags:    h.Tags,
			Reason:  h.Reason,
			Score:   highlights.CandidateScore(h.Idx, top),
		})
		if len(res) >= maxHighlights {
			break
		}
	}
	return res
}
