package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Siddharth-vip/teasergen/internal/ingest"
	"github.com/Siddharth-vip/teasergen/internal/jobs"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

type createJobRequest struct {
	Source      string `json:"source"`
	DurationSec int    `json:"duration_sec"`
	Tone        string `json:"tone"`
	Subtitles   *bool  `json:"subtitles"`
	LogoPath    string `json:"logo_path"`
	Tagline     string `json:"tagline"`
	MusicPath   string `json:"music_path"`
}

type jobResponse struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Status          string    `json:"status"`
	Tone            string    `json:"tone"`
	DurationSec     int       `json:"duration_sec"`
	Subtitles       bool      `json:"subtitles"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	TeaserPath      string    `json:"teaser_path,omitempty"`
	Caption         string    `json:"caption,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toJobResponse(j *jobs.Job) jobResponse {
	return jobResponse{
		ID:              j.ID,
		Source:          j.Source,
		Status:          string(j.Status),
		Tone:            string(j.Tone),
		DurationSec:     j.DurationSec,
		Subtitles:       j.Subtitles,
		ProgressStage:   j.ProgressStage,
		ProgressPercent: j.ProgressPercent,
		ErrorMessage:    j.ErrorMessage,
		TeaserPath:      j.TeaserPath,
		Caption:         j.Caption,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCreateJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Source) == "" {
		return badRequest(c, "source is required")
	}

	if _, err := ingest.Resolve(s.cfg, req.Source); err != nil {
		return badRequest(c, err.Error())
	}

	prefs, err := s.buildPrefs(req.DurationSec, req.Tone, req.Subtitles, req.LogoPath, req.Tagline, req.MusicPath)
	if err != nil {
		return badRequest(c, err.Error())
	}

	job, err := s.store.Enqueue(c.Context(), req.Source, prefs)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(job))
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		return badRequest(c, "multipart field \"video\" is required")
	}
	if file.Size > s.cfg.MaxUploadBytes() {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %dMB limit", s.cfg.Ingest.MaxUploadMB))
	}
	if !s.cfg.SupportsFormat(file.Filename) {
		return badRequest(c, fmt.Sprintf("unsupported format %s", filepath.Ext(file.Filename)))
	}

	dest := filepath.Join(s.cfg.Paths.InputDir,
		uuid.NewString()[:8]+"-"+filepath.Base(file.Filename))
	if err := c.SaveFile(file, dest); err != nil {
		return serverError(c, fmt.Errorf("store upload: %w", err))
	}

	durationSec, _ := strconv.Atoi(c.FormValue("duration_sec"))
	var subtitles *bool
	if v := c.FormValue("subtitles"); v != "" {
		b := v == "true" || v == "1" || v == "on"
		subtitles = &b
	}
	prefs, err := s.buildPrefs(durationSec, c.FormValue("tone"), subtitles,
		c.FormValue("logo_path"), c.FormValue("tagline"), c.FormValue("music_path"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	job, err := s.store.Enqueue(c.Context(), dest, prefs)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(job))
}

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	list, err := s.store.List(c.Context())
	if err != nil {
		return serverError(c, err)
	}
	out := make([]jobResponse, 0, len(list))
	for _, j := range list {
		out = append(out, toJobResponse(j))
	}
	return c.JSON(fiber.Map{"jobs": out})
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	job, err := s.findJob(c)
	if err != nil {
		return err
	}
	return c.JSON(toJobResponse(job))
}

// handleDeleteJob cancels a queued or running job, or removes the record of
// a finished one.
func (s *Server) handleDeleteJob(c *fiber.Ctx) error {
	job, err := s.findJob(c)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		if err := s.store.Delete(c.Context(), job.ID); err != nil {
			return serverError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": job.ID})
	}
	if err := s.store.Cancel(c.Context(), job.ID); err != nil {
		return serverError(c, err)
	}
	s.abort(job.ID)
	return c.JSON(fiber.Map{"cancelled": job.ID})
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	job, err := s.findJob(c)
	if err != nil {
		return err
	}
	if job.Status != jobs.StatusCompleted || job.TeaserPath == "" {
		return fiber.NewError(fiber.StatusConflict, "teaser is not ready")
	}
	c.Attachment(filepath.Base(job.TeaserPath))
	return c.SendFile(job.TeaserPath)
}

func (s *Server) handleCaption(c *fiber.Ctx) error {
	job, err := s.findJob(c)
	if err != nil {
		return err
	}
	if job.Status != jobs.StatusCompleted {
		return fiber.NewError(fiber.StatusConflict, "teaser is not ready")
	}
	return c.JSON(fiber.Map{"caption": job.Caption})
}

func (s *Server) findJob(c *fiber.Ctx) (*jobs.Job, error) {
	job, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	if err != nil {
		return nil, serverError(c, err)
	}
	return job, nil
}

func (s *Server) buildPrefs(durationSec int, tone string, subtitles *bool, logo, tagline, music string) (types.Preferences, error) {
	if durationSec == 0 {
		durationSec = s.cfg.Teaser.DefaultSeconds
	}
	if durationSec < s.cfg.Teaser.MinSeconds || durationSec > s.cfg.Teaser.MaxSeconds {
		return types.Preferences{}, fmt.Errorf("duration must be between %d and %d seconds",
			s.cfg.Teaser.MinSeconds, s.cfg.Teaser.MaxSeconds)
	}
	parsedTone, err := types.ParseTone(tone)
	if err != nil {
		return types.Preferences{}, err
	}
	sub := s.cfg.Teaser.Subtitles
	if subtitles != nil {
		sub = *subtitles
	}
	return types.Preferences{
		Duration:  time.Duration(durationSec) * time.Second,
		Tone:      parsedTone,
		Branding:  types.Branding{LogoPath: logo, Tagline: tagline},
		Subtitles: sub,
		MusicPath: music,
	}, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

func serverError(c *fiber.Ctx, err error) error {
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
