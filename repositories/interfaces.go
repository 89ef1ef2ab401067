package repositories

import (
	"context"

	"vidsense/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByEmail(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID string) (models.User, error)
}

type ListVideosInput struct {
	// UserID empty means no ownership filter (admin scope).
	UserID      string
	Status      string
	Sensitivity string
	Offset      int
	Limit       int
}

type VideoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, video *models.Video) error
	GetByID(ctx context.Context, tx *gorm.DB, videoID string) (models.Video, error)
	Count(ctx context.Context, tx *gorm.DB, in ListVideosInput) (int64, error)
	List(ctx context.Context, tx *gorm.DB, in ListVideosInput) ([]models.Video, error)
	// UpdateByID is a silent no-op when the record no longer exists.
	UpdateByID(ctx context.Context, tx *gorm.DB, videoID string, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, videoID string) error
}

type Container struct {
	TxManager TxManager
	Users     UserRepository
	Videos    VideoRepository
}
