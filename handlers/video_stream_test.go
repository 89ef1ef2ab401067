package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vidsense/config"
	"vidsense/models"
	"vidsense/repositories"
	"vidsense/services"

	"github.com/gin-gonic/gin"
)

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, services.Event) {}

func setupStreamTest(t *testing.T, payload []byte) (*gin.Engine, models.Video, repositories.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Storage: config.StorageConfig{
			BasePath:     t.TempDir(),
			MaxFileSize:  1 << 20,
			AllowedTypes: []string{"video/mp4"},
		},
		Processing: config.ProcessingConfig{TickMs: 1, ProgressStep: 10, WorkerCount: 1, QueueSize: 8},
		Pagination: config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 1000},
	}

	repos := repositories.NewMemoryRepositories().BuildContainer()
	container := services.NewContainer(repos, nopNotifier{}, services.NewWeightedRandomClassifier(1, 3, 4))
	SetServices(container)

	video := models.Video{
		ID:           "v1",
		UserID:       "u1",
		Filename:     "clip.mp4",
		OriginalName: "clip.mp4",
		FileSize:     int64(len(payload)),
		Status:       models.VideoStatusCompleted,
	}
	if err := repos.Videos.Create(context.Background(), nil, &video); err != nil {
		t.Fatalf("seed video failed: %v", err)
	}

	absPath := services.StoragePath(video.Filename)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(absPath, payload, 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}

	router := gin.New()
	router.GET("/api/videos/:id/stream", func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Set("role", models.RoleEditor)
		StreamVideo(c)
	})
	return router, video, repos
}

func TestStreamVideoRangeRequest(t *testing.T) {
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	router, video, _ := setupStreamTest(t, payload)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/stream", nil)
	req.Header.Set("Range", "bytes=0-99")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("status %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Fatalf("Content-Range %q", got)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "100" {
		t.Fatalf("Content-Length %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), payload[:100]) {
		t.Fatalf("body has %d bytes and does not match the requested window", w.Body.Len())
	}
}

func TestStreamVideoOpenEndedRange(t *testing.T) {
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	router, video, _ := setupStreamTest(t, payload)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/stream", nil)
	req.Header.Set("Range", "bytes=900-")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("status %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 900-999/1000" {
		t.Fatalf("Content-Range %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), payload[900:]) {
		t.Fatalf("body has %d bytes and does not match the file tail", w.Body.Len())
	}
}

func TestStreamVideoFullFile(t *testing.T) {
	payload := bytes.Repeat([]byte("f"), 1000)
	router, video, _ := setupStreamTest(t, payload)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges %q", got)
	}
	if w.Body.Len() != 1000 {
		t.Fatalf("body has %d bytes, want 1000", w.Body.Len())
	}
}

func TestStreamVideoRejectsBadRanges(t *testing.T) {
	router, video, _ := setupStreamTest(t, bytes.Repeat([]byte("f"), 1000))

	for _, header := range []string{"bytes=5000-", "bytes=abc", "units=0-99"} {
		req := httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/stream", nil)
		req.Header.Set("Range", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Range %q got status %d, want 400", header, w.Code)
		}
	}
}

func TestStreamVideoNotReady(t *testing.T) {
	router, _, repos := setupStreamTest(t, []byte("bytes"))

	pending := models.Video{
		ID:       "v2",
		UserID:   "u1",
		Filename: "pending.mp4",
		Status:   models.VideoStatusProcessing,
	}
	if err := repos.Videos.Create(context.Background(), nil, &pending); err != nil {
		t.Fatalf("seed pending video failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+pending.ID+"/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}
