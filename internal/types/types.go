package types

import (
	"fmt"
	"strings"
	"time"
)

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Tone steers highlight ranking and caption copy.
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneExciting      Tone = "exciting"
	ToneEducational   Tone = "educational"
	ToneInspirational Tone = "inspirational"
)

func Tones() []Tone {
	return []Tone{ToneProfessional, ToneExciting, ToneEducational, ToneInspirational}
}

func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return ToneProfessional, nil
	case ToneProfessional, ToneExciting, ToneEducational, ToneInspirational:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tone %q (expected one of %v)", s, Tones())
	}
}

type Branding struct {
	LogoPath string `json:"logo_path,omitempty"`
	Tagline  string `json:"tagline,omitempty"`
}

// Preferences captures everything the user chooses before a teaser is built.
type Preferences struct {
	Duration  time.Duration
	Tone      Tone
	Branding  Branding
	Subtitles bool
	MusicPath string
}

type Candidate struct {
	Start time.Duration
	End   time.Duration
	Text  string

	InfoScore float64
	HookScore float64
}

// Highlight is a refined selection: a source-time window plus the metadata
// the ranker produced for it.
type Highlight struct {
	Start   time.Duration
	End     time.Duration
	Title   string
	Summary string
	Tags    []string
	Reason  string
	Score   float64
}

// TeaserPlan is the ordered set of source windows the renderer stitches
// together. Segments are chronological and non-overlapping in source time.
type TeaserPlan struct {
	Segments []PlanSegment
}

type PlanSegment struct {
	Start time.Duration
	End   time.Duration
	Title string
}

func (p TeaserPlan) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Segments {
		d += s.End - s.Start
	}
	return d
}

type Manifest struct {
	Input       string            `json:"input"`
	Tone        string            `json:"tone"`
	DurationSec float64           `json:"duration_sec"`
	Teaser      string            `json:"teaser"`
	Caption     string            `json:"caption"`
	Subtitles   string            `json:"subtitles,omitempty"`
	SRT         string            `json:"srt,omitempty"`
	Segments    []ManifestSegment `json:"segments"`
}

type ManifestSegment struct {
	ID       string   `json:"id"`
	StartSec float64  `json:"start_sec"`
	EndSec   float64  `json:"end_sec"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}
