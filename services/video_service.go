package services

import (
	"context"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vidsense/config"
	"vidsense/logger"
	"vidsense/models"
	"vidsense/repositories"
	"vidsense/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListVideosOptions struct {
	Status      string
	Sensitivity string
	Page        int
	PageSize    int
}

type VideoListOutput struct {
	Videos     []models.Video       `json:"videos"`
	Pagination utils.PaginationData `json:"pagination"`
}

// StreamInfo is everything the stream handler needs to serve bytes.
type StreamInfo struct {
	Video       models.Video
	AbsPath     string
	FileSize    int64
	ContentType string
}

type VideoService interface {
	Upload(ctx context.Context, owner models.User, file multipart.File, header *multipart.FileHeader) (models.Video, error)
	List(ctx context.Context, requester models.User, opts ListVideosOptions) (VideoListOutput, error)
	Get(ctx context.Context, requester models.User, videoID string) (models.Video, error)
	GetStreamInfo(ctx context.Context, requester models.User, videoID string) (StreamInfo, error)
	Delete(ctx context.Context, requester models.User, videoID string) error
}

type videoService struct {
	videos    repositories.VideoRepository
	locks     *videoLocks
	scheduler ProcessingScheduler
}

func NewVideoService(videos repositories.VideoRepository, locks *videoLocks, scheduler ProcessingScheduler) VideoService {
	return &videoService{videos: videos, locks: locks, scheduler: scheduler}
}

func isMediaTypeAllowed(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, allowed := range config.AppConfig.Storage.AllowedTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// sanitizeExtension keeps only the extension of the user-supplied name;
// the name itself never reaches the filesystem.
func sanitizeExtension(originalName string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}

func uploadDir() string {
	return filepath.Join(config.AppConfig.Storage.BasePath, "uploads")
}

// StoragePath resolves a generated filename inside the upload directory.
func StoragePath(filename string) string {
	return filepath.Join(uploadDir(), filename)
}

func (s *videoService) Upload(ctx context.Context, owner models.User, file multipart.File, header *multipart.FileHeader) (models.Video, error) {
	if !isMediaTypeAllowed(header.Header.Get("Content-Type")) {
		return models.Video{}, newAppError(http.StatusBadRequest, "invalid file type, only video files are allowed", nil)
	}
	if header.Size > config.AppConfig.Storage.MaxFileSize {
		return models.Video{}, newAppError(http.StatusBadRequest, "file size exceeds limit", nil)
	}

	storageName := uuid.New().String() + sanitizeExtension(header.Filename)

	video := models.Video{
		ID:           uuid.New().String(),
		UserID:       owner.ID,
		Filename:     storageName,
		OriginalName: header.Filename,
		FileSize:     0,
		Status:       models.VideoStatusUploading,
	}
	if err := s.videos.Create(ctx, nil, &video); err != nil {
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to create video record", err)
	}

	if err := os.MkdirAll(uploadDir(), 0o755); err != nil {
		s.compensate(ctx, video.ID, "")
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to create upload directory", err)
	}

	absPath := StoragePath(storageName)
	written, err := s.persistBytes(absPath, file)
	if err != nil {
		s.compensate(ctx, video.ID, absPath)
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to save video file", err)
	}

	err = s.videos.UpdateByID(ctx, nil, video.ID, map[string]interface{}{
		"file_size":       written,
		"status":          models.VideoStatusProcessing,
		"upload_progress": 100,
	})
	if err != nil {
		s.compensate(ctx, video.ID, absPath)
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to update video record", err)
	}

	if err := s.scheduler.Schedule(video.ID, owner.ID); err != nil {
		s.compensate(ctx, video.ID, absPath)
		var appErr *AppError
		if errors.As(err, &appErr) {
			return models.Video{}, appErr
		}
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to schedule processing", err)
	}

	video.FileSize = written
	video.Status = models.VideoStatusProcessing
	video.UploadProgress = 100
	return video, nil
}

func (s *videoService) persistBytes(absPath string, src io.Reader) (int64, error) {
	dst, err := os.Create(absPath)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return written, err
}

// compensate undoes the partial upload so no record stays in uploading
// without a corresponding file.
func (s *videoService) compensate(ctx context.Context, videoID string, absPath string) {
	if absPath != "" {
		_ = os.Remove(absPath)
	}
	if err := s.videos.DeleteByID(ctx, nil, videoID); err != nil {
		logger.Errorf("compensating delete of video %s: %v", videoID, err)
	}
}

func (s *videoService) List(ctx context.Context, requester models.User, opts ListVideosOptions) (VideoListOutput, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > config.AppConfig.Pagination.MaxPageSize {
		pageSize = config.AppConfig.Pagination.DefaultPageSize
	}

	in := repositories.ListVideosInput{
		Status:      opts.Status,
		Sensitivity: opts.Sensitivity,
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	}
	if requester.Role != models.RoleAdmin {
		in.UserID = requester.ID
	}

	total, err := s.videos.Count(ctx, nil, in)
	if err != nil {
		return VideoListOutput{}, newAppError(http.StatusInternalServerError, "failed to count videos", err)
	}

	list, err := s.videos.List(ctx, nil, in)
	if err != nil {
		return VideoListOutput{}, newAppError(http.StatusInternalServerError, "failed to list videos", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	return VideoListOutput{
		Videos: list,
		Pagination: utils.PaginationData{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

func (s *videoService) getOwnedOrAdmin(ctx context.Context, requester models.User, videoID string) (models.Video, error) {
	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Video{}, newAppError(http.StatusNotFound, "video not found", nil)
		}
		return models.Video{}, newAppError(http.StatusInternalServerError, "failed to query video", err)
	}
	if requester.Role != models.RoleAdmin && video.UserID != requester.ID {
		return models.Video{}, newAppError(http.StatusForbidden, "access denied", nil)
	}
	return video, nil
}

func (s *videoService) Get(ctx context.Context, requester models.User, videoID string) (models.Video, error) {
	return s.getOwnedOrAdmin(ctx, requester, videoID)
}

func (s *videoService) GetStreamInfo(ctx context.Context, requester models.User, videoID string) (StreamInfo, error) {
	video, err := s.getOwnedOrAdmin(ctx, requester, videoID)
	if err != nil {
		return StreamInfo{}, err
	}
	if video.Status != models.VideoStatusCompleted {
		return StreamInfo{}, newAppError(http.StatusBadRequest, "video is not ready for streaming", nil)
	}

	absPath := StoragePath(video.Filename)
	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return StreamInfo{}, newAppError(http.StatusNotFound, "video file not found", nil)
		}
		return StreamInfo{}, newAppError(http.StatusInternalServerError, "failed to stat video file", err)
	}

	return StreamInfo{
		Video:       video,
		AbsPath:     absPath,
		FileSize:    stat.Size(),
		ContentType: "video/mp4",
	}, nil
}

func (s *videoService) Delete(ctx context.Context, requester models.User, videoID string) error {
	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newAppError(http.StatusNotFound, "video not found", nil)
		}
		return newAppError(http.StatusInternalServerError, "failed to query video", err)
	}

	switch requester.Role {
	case models.RoleAdmin:
	case models.RoleEditor:
		if video.UserID != requester.ID {
			return newAppError(http.StatusForbidden, "access denied", nil)
		}
	default:
		return newAppError(http.StatusForbidden, "access denied", nil)
	}

	// Shares the per-video lock with the processing run, so a delete
	// issued mid-run waits for the run's terminal state.
	s.locks.Lock(video.ID)
	defer s.locks.Unlock(video.ID)

	absPath := StoragePath(video.Filename)
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return newAppError(http.StatusInternalServerError, "failed to delete video file", err)
	}

	if err := s.videos.DeleteByID(ctx, nil, video.ID); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to delete video record", err)
	}
	return nil
}
