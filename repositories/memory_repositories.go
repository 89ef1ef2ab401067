package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"vidsense/models"

	"gorm.io/gorm"
)

// Memory-backed implementations used when no database is wired in,
// primarily by tests. They honor the same contracts as the Gorm ones,
// including update-on-missing being a silent no-op.

type MemoryTxManager struct{}

func (MemoryTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]models.User{}}
}

func (r *MemoryUserRepository) CountByEmail(_ context.Context, email string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, u := range r.users {
		if u.Email == email {
			count++
		}
	}
	return count, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, _ *gorm.DB, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *MemoryUserRepository) GetByID(_ context.Context, _ *gorm.DB, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return u, nil
}

type MemoryVideoRepository struct {
	mu     sync.RWMutex
	videos map[string]models.Video
}

func NewMemoryVideoRepository() *MemoryVideoRepository {
	return &MemoryVideoRepository{videos: map[string]models.Video{}}
}

func (r *MemoryVideoRepository) Create(_ context.Context, _ *gorm.DB, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	r.videos[video.ID] = *video
	return nil
}

func (r *MemoryVideoRepository) GetByID(_ context.Context, _ *gorm.DB, videoID string) (models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[videoID]
	if !ok {
		return models.Video{}, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *MemoryVideoRepository) matches(v models.Video, in ListVideosInput) bool {
	if in.UserID != "" && v.UserID != in.UserID {
		return false
	}
	if in.Status != "" && v.Status != in.Status {
		return false
	}
	if in.Sensitivity != "" && (v.Sensitivity == nil || *v.Sensitivity != in.Sensitivity) {
		return false
	}
	return true
}

func (r *MemoryVideoRepository) Count(_ context.Context, _ *gorm.DB, in ListVideosInput) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, v := range r.videos {
		if r.matches(v, in) {
			total++
		}
	}
	return total, nil
}

func (r *MemoryVideoRepository) List(_ context.Context, _ *gorm.DB, in ListVideosInput) ([]models.Video, error) {
	r.mu.RLock()
	matched := make([]models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		if r.matches(v, in) {
			matched = append(matched, v)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if in.Offset >= len(matched) {
		return []models.Video{}, nil
	}
	matched = matched[in.Offset:]
	if in.Limit > 0 && in.Limit < len(matched) {
		matched = matched[:in.Limit]
	}
	return matched, nil
}

func (r *MemoryVideoRepository) UpdateByID(_ context.Context, _ *gorm.DB, videoID string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil
	}
	for column, value := range updates {
		switch column {
		case "status":
			v.Status = value.(string)
		case "sensitivity":
			switch s := value.(type) {
			case string:
				v.Sensitivity = &s
			case *string:
				v.Sensitivity = s
			}
		case "file_size":
			v.FileSize = value.(int64)
		case "upload_progress":
			v.UploadProgress = value.(int)
		case "processing_progress":
			v.ProcessingProgress = value.(int)
		}
	}
	v.UpdatedAt = time.Now()
	r.videos[videoID] = v
	return nil
}

func (r *MemoryVideoRepository) DeleteByID(_ context.Context, _ *gorm.DB, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.videos, videoID)
	return nil
}

type MemoryRepositories struct{}

func NewMemoryRepositories() *MemoryRepositories {
	return &MemoryRepositories{}
}

func (r *MemoryRepositories) BuildContainer() Container {
	return Container{
		TxManager: MemoryTxManager{},
		Users:     NewMemoryUserRepository(),
		Videos:    NewMemoryVideoRepository(),
	}
}
