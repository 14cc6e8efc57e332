package jobs

import (
	"time"

	"github.com/Siddharth-vip/teasergen/internal/types"
)

// Status describes where a job sits in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is one teaser-generation request.
type Job struct {
	ID     string
	Source string
	Status Status

	Tone        types.Tone
	DurationSec int
	Subtitles   bool
	LogoPath    string
	Tagline     string
	MusicPath   string

	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string

	ErrorMessage string
	TeaserPath   string
	Caption      string
	OutDir       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Prefs converts the stored preference columns back to pipeline preferences.
func (j *Job) Prefs() types.Preferences {
	return types.Preferences{
		Duration: time.Duration(j.DurationSec) * time.Second,
		Tone:     j.Tone,
		Branding: types.Branding{
			LogoPath: j.LogoPath,
			Tagline:  j.Tagline,
		},
		Subtitles: j.Subtitles,
		MusicPath: j.MusicPath,
	}
}
