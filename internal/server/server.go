// Package server exposes the teaser pipeline over an HTTP API with a
// bounded background worker pool draining the job queue.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/flock"

	"github.com/Siddharth-vip/teasergen/internal/config"
	"github.com/Siddharth-vip/teasergen/internal/jobs"
	"github.com/Siddharth-vip/teasergen/internal/pipeline"
	"github.com/Siddharth-vip/teasergen/internal/usecase"
)

const claimInterval = 2 * time.Second

// Server owns the HTTP API and the job workers.
type Server struct {
	cfg   *config.Config
	store *jobs.Store
	log   *slog.Logger
	app   *fiber.App
	sem   chan struct{}
	lock  *flock.Flock

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// New builds a Server around an open job store.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Server.MaxConcurrent
	if workers < 1 {
		workers = 1
	}

	app := fiber.New(fiber.Config{
		AppName:               "teasergen",
		BodyLimit:             int(cfg.MaxUploadBytes()),
		DisableStartupMessage: true,
	})

	s := &Server{
		cfg:   cfg,
		store: store,
		log:   logger,
		app:   app,
		sem:   make(chan struct{}, workers),
		lock:  flock.New(filepath.Join(cfg.Paths.DataDir, "teasergen.lock")),

		running: make(map[string]context.CancelFunc),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/api")
	api.Post("/jobs", s.handleCreateJob)
	api.Post("/uploads", s.handleUpload)
	api.Get("/jobs", s.handleListJobs)
	api.Get("/jobs/:id", s.handleGetJob)
	api.Delete("/jobs/:id", s.handleDeleteJob)
	api.Get("/jobs/:id/download", s.handleDownload)
	api.Get("/jobs/:id/caption", s.handleCaption)
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run acquires the data-dir lock, resets orphaned jobs, starts the worker
// loop and serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	unlock, err := s.prepare(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	go s.workLoop(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Server.Bind)
	}()
	s.log.Info("http server listening", "bind", s.cfg.Server.Bind, "workers", cap(s.sem))

	select {
	case <-ctx.Done():
		_ = s.app.ShutdownWithTimeout(5 * time.Second)
		return nil
	case err := <-errCh:
		return err
	}
}

// RunWorkers drains the job queue without serving HTTP. Used by watch mode.
func (s *Server) RunWorkers(ctx context.Context) error {
	unlock, err := s.prepare(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	s.log.Info("job workers running", "workers", cap(s.sem))
	s.workLoop(ctx)
	return nil
}

func (s *Server) prepare(ctx context.Context) (func(), error) {
	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another teasergen instance holds %s", s.lock.Path())
	}

	if n, err := s.store.ResetStuck(ctx); err != nil {
		_ = s.lock.Unlock()
		return nil, err
	} else if n > 0 {
		s.log.Warn("requeued interrupted jobs", "count", n)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// workLoop claims pending jobs and runs them, at most MaxConcurrent at once.
func (s *Server) workLoop(ctx context.Context) {
	ticker := time.NewTicker(claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			job, err := s.store.ClaimNext(ctx)
			if err != nil {
				<-s.sem
				if !errors.Is(err, jobs.ErrNoPending) && ctx.Err() == nil {
					s.log.Error("claim job", "error", err)
				}
				break
			}

			go func(job *jobs.Job) {
				defer func() { <-s.sem }()
				jobCtx, done := s.track(ctx, job.ID)
				defer done()
				s.runJob(jobCtx, job)
			}(job)
		}
	}
}

// track registers a cancel handle for a claimed job so an API cancellation
// can abort the running pipeline, not just flip the database row.
func (s *Server) track(ctx context.Context, id string) (context.Context, func()) {
	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()
	return jobCtx, func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		cancel()
	}
}

// abort cancels the context of a running job, if any.
func (s *Server) abort(id string) {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Server) runJob(ctx context.Context, job *jobs.Job) {
	log := s.log.With("job_id", job.ID, "source", job.Source)
	log.Info("job started", "tone", job.Tone, "duration_sec", job.DurationSec)

	res, err := pipeline.Execute(ctx, pipeline.Run{
		Cfg:   s.cfg,
		Input: job.Source,
		Prefs: job.Prefs(),
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
		Progress: func(stage string, pct float64) {
			if upErr := s.store.UpdateProgress(ctx, job.ID, stage, pct, stageMessage(stage)); upErr != nil && ctx.Err() == nil {
				log.Warn("record progress", "error", upErr)
			}
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("job aborted")
			return
		}
		log.Error("job failed", "error", err)
		if failErr := s.store.Fail(context.Background(), job.ID, err.Error()); failErr != nil {
			log.Error("record failure", "error", failErr)
		}
		return
	}

	if err := s.store.Complete(context.Background(), job.ID, res.TeaserPath, res.Manifest.Caption, res.OutDir); err != nil {
		log.Error("record completion", "error", err)
		return
	}
	log.Info("job completed", "teaser", res.TeaserPath)
}

// stageMessage maps pipeline stage names to the progress text surfaced
// through the API and the jobs table.
func stageMessage(stage string) string {
	switch stage {
	case pipeline.StageDownload:
		return "downloading source video"
	case usecase.StageTranscribe:
		return "extracting and transcribing audio"
	case usecase.StageAnalyze:
		return "scoring and selecting highlights"
	case usecase.StageRender:
		return "cutting and rendering the teaser"
	default:
		return stage
	}
}
