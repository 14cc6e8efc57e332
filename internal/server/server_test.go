package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/config"
	"github.com/Siddharth-vip/teasergen/internal/jobs"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

func testPrefs() types.Preferences {
	return types.Preferences{Duration: 30 * time.Second, Tone: types.ToneProfessional, Subtitles: true}
}

func testServer(t *testing.T) (*Server, *jobs.Store, *config.Config) {
	t.Helper()

	tmp := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(tmp, "data")
	cfg.Paths.OutputDir = filepath.Join(tmp, "out")
	cfg.Paths.CacheDir = filepath.Join(tmp, "cache")
	cfg.Paths.InputDir = filepath.Join(tmp, "input")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := jobs.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, store, logger), store, cfg
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJob(t *testing.T, resp *http.Response) jobResponse {
	t.Helper()
	defer resp.Body.Close()
	var jr jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	return jr
}

func TestHealthz(t *testing.T) {
	s, _, _ := testServer(t)
	resp := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateJob_YouTubeURL(t *testing.T) {
	s, store, _ := testServer(t)

	resp := doJSON(t, s, http.MethodPost, "/api/jobs", map[string]any{
		"source":       "https://youtu.be/dQw4w9WgXcQ",
		"duration_sec": 45,
		"tone":         "exciting",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	jr := decodeJob(t, resp)
	if jr.Status != "pending" || jr.Tone != "exciting" || jr.DurationSec != 45 {
		t.Fatalf("unexpected job: %+v", jr)
	}

	stored, err := store.Get(t.Context(), jr.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.Source != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("source = %q", stored.Source)
	}
}

func TestCreateJob_Validation(t *testing.T) {
	s, _, _ := testServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing source", map[string]any{}},
		{"non-youtube url", map[string]any{"source": "https://example.com/v.mp4"}},
		{"missing local file", map[string]any{"source": "/does/not/exist.mp4"}},
		{"duration too short", map[string]any{"source": "https://youtu.be/dQw4w9WgXcQ", "duration_sec": 3}},
		{"duration too long", map[string]any{"source": "https://youtu.be/dQw4w9WgXcQ", "duration_sec": 999}},
		{"bad tone", map[string]any{"source": "https://youtu.be/dQw4w9WgXcQ", "tone": "sarcastic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, s, http.MethodPost, "/api/jobs", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	s, _, cfg := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", "talk.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake video bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("tone", "educational"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	jr := decodeJob(t, resp)
	if jr.Tone != "educational" {
		t.Fatalf("tone = %q", jr.Tone)
	}
	if filepath.Dir(jr.Source) != cfg.Paths.InputDir {
		t.Fatalf("upload stored outside input dir: %s", jr.Source)
	}
	if _, err := os.Stat(jr.Source); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	s, _, _ := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("video", "notes.txt")
	fmt.Fprint(fw, "not a video")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetListDeleteJob(t *testing.T) {
	s, store, _ := testServer(t)

	job, err := store.Enqueue(t.Context(), "https://youtu.be/dQw4w9WgXcQ", testPrefs())
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/jobs/"+job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if jr := decodeJob(t, resp); jr.ID != job.ID {
		t.Fatalf("id = %s", jr.ID)
	}

	resp = doJSON(t, s, http.MethodGet, "/api/jobs/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d", resp.StatusCode)
	}

	resp = doJSON(t, s, http.MethodGet, "/api/jobs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}

	// pending job: delete cancels
	resp = doJSON(t, s, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	got, err := store.Get(t.Context(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	// cancelled job: delete removes the record
	resp = doJSON(t, s, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
	if _, err := store.Get(t.Context(), job.ID); err == nil {
		t.Fatalf("expected job to be gone")
	}
}

func TestDeleteJob_AbortsRunningPipeline(t *testing.T) {
	s, store, _ := testServer(t)

	job, err := store.Enqueue(t.Context(), "https://youtu.be/dQw4w9WgXcQ", testPrefs())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimNext(t.Context()); err != nil {
		t.Fatal(err)
	}
	jobCtx, done := s.track(t.Context(), job.ID)
	defer done()

	resp := doJSON(t, s, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	select {
	case <-jobCtx.Done():
	default:
		t.Fatalf("expected the running job context to be cancelled")
	}

	got, err := store.Get(t.Context(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	// A worker completion racing the cancellation must not resurrect the job.
	if err := store.Complete(t.Context(), job.ID, "/out/t.mp4", "c", "/out"); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(t.Context(), job.ID)
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s after late completion, want cancelled", got.Status)
	}
}

func TestStageMessage(t *testing.T) {
	stages := []string{"downloading", "transcribing", "analyzing", "rendering"}
	seen := make(map[string]bool)
	for _, stage := range stages {
		msg := stageMessage(stage)
		if msg == "" || msg == stage {
			t.Fatalf("stageMessage(%q) = %q, want descriptive text", stage, msg)
		}
		if seen[msg] {
			t.Fatalf("duplicate message %q", msg)
		}
		seen[msg] = true
	}
	if got := stageMessage("custom"); got != "custom" {
		t.Fatalf("unknown stage = %q, want passthrough", got)
	}
}

func TestDownloadAndCaption_NotReady(t *testing.T) {
	s, store, _ := testServer(t)

	job, err := store.Enqueue(t.Context(), "https://youtu.be/dQw4w9WgXcQ", testPrefs())
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/jobs/"+job.ID+"/download", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("download status = %d, want 409", resp.StatusCode)
	}
	resp = doJSON(t, s, http.MethodGet, "/api/jobs/"+job.ID+"/caption", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("caption status = %d, want 409", resp.StatusCode)
	}
}

func TestCaption_Completed(t *testing.T) {
	s, store, _ := testServer(t)

	job, err := store.Enqueue(t.Context(), "in.mp4", testPrefs())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimNext(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := store.Complete(t.Context(), job.ID, "/out/teaser.mp4", "big reveal", "/out"); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/jobs/"+job.ID+"/caption", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["caption"] != "big reveal" {
		t.Fatalf("caption = %q", body["caption"])
	}
}
