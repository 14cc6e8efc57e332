// Package openai adapts the hosted OpenAI chat API to the highlight-ranking
// and caption-writing ports.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/Siddharth-vip/teasergen/internal/domain/highlights"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

const requestTimeout = 90 * time.Second

type Adapter struct {
	client *sdk.Client
	model  string
	key    string
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := sdk.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Adapter{client: sdk.NewClientWithConfig(cfg), model: model, key: apiKey}
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

	pb, err := marshalCandidates(top, tone, maxHighlights, minClip, maxClip)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, sdk.ChatCompletionRequest{
		Model: a.model,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleUser, Content: refinePrompt(tone, pb)},
		},
		ResponseFormat: &sdk.ChatCompletionResponseFormat{
			Type: sdk.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, fmt.Errorf("openai refine: %s", redactSecrets(err.Error(), a.key))
	}
	if len(resp.Choices) == 0 {
		return highlights.Fallback(top, maxHighlights, minClip, maxClip, timing), nil
	}

	res := parseHighlights(resp.Choices[0].Message.Content, top, maxHighlights, minClip, maxClip, timing)
	if len(res) == 0 {
		// Keep the pipeline useful when the model misbehaves.
		res = highlights.Fallback(top, maxHighlights, minClip, maxClip, timing)
	}
	if len(res) > maxHighlights {
		res = res[:maxHighlights]
	}
	return res, nil
}

// Caption produces tone-matched social copy, falling back to canned copy when
// the API misbehaves so a rendered teaser always ships with a caption.
func (a *Adapter) Caption(ctx context.Context, tone types.Tone, summary string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, sdk.ChatCompletionRequest{
		Model: a.model,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleUser, Content: captionPrompt(tone, summary)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return FallbackCaption(tone), nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return FallbackCaption(tone), nil
	}
	return text, nil
}

// FallbackCaption returns canned tone-matched copy.
func FallbackCaption(tone types.Tone) string {
	switch tone {
	case types.ToneExciting:
		return "Get ready for something amazing! This will transform how you work. #GameChanger #Excited"
	case types.ToneEducational:
		return "Learn how this approach can help solve common challenges in your field. #Education #Knowledge"
	case types.ToneInspirational:
		return "Unlock your potential with ideas designed to help you achieve more. #Inspiration #Growth"
	default:
		return "Introducing our latest work designed to enhance productivity and efficiency. #Innovation #Tech"
	}
}

type promptCandidate struct {
	Idx      int     `json:"idx"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Info     float64 `json:"info"`
	Hook     float64 `json:"hook"`
}

func marshalCandidates(top []types.Candidate, tone types.Tone, maxHighlights int, minClip, maxClip time.Duration) ([]byte, error) {
	arr := make([]promptCandidate, 0, len(top))
	for i, c := range top {
		arr = append(arr, promptCandidate{
			Idx:      i,
			StartSec: c.Start.Seconds(),
			EndSec:   c.End.Seconds(),
			Text:     c.Text,
			Info:     c.InfoScore,
			Hook:     c.HookScore,
		})
	}
	b, err := json.Marshal(map[string]any{
		"tone":          string(tone),
		"maxHighlights": maxHighlights,
		"minSec":        minClip.Seconds(),
		"maxSec":        maxClip.Seconds(),
		"candidates":    arr,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal prompt: %w", err)
	}
	return b, nil
}

type rankedHighlight struct {
	Idx      int      `json:"idx"`
	StartSec float64  `json:"start_sec"`
	EndSec   float64  `json:"end_sec"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Reason   string   `json:"reason"`
}

// parseHighlights turns raw model output into validated highlights. Invalid
// entries are dropped rather than failing the run.
func parseHighlights(
	content string,
	top []types.Candidate,
	maxHighlights int,
	minClip, maxClip time.Duration,
	timing highlights.Timing,
) []types.Highlight {
	clean, err := extractJSONObject(content)
	if err != nil {
		return nil
	}

	var out struct {
		Highlights []rankedHighlight `json:"highlights"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
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
		summary := strings.TrimSpace(h.Summary)
		if title == "" {
			title = "Highlight"
		}
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
