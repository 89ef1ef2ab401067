package repositories

import (
	"context"

	"vidsense/models"

	"gorm.io/gorm"
)

type GormVideoRepository struct {
	db *gorm.DB
}

func NewGormVideoRepository(db *gorm.DB) *GormVideoRepository {
	return &GormVideoRepository{db: db}
}

func (r *GormVideoRepository) filteredQuery(db *gorm.DB, in ListVideosInput) *gorm.DB {
	query := db.Model(&models.Video{})
	if in.UserID != "" {
		query = query.Where("user_id = ?", in.UserID)
	}
	if in.Status != "" {
		query = query.Where("status = ?", in.Status)
	}
	if in.Sensitivity != "" {
		query = query.Where("sensitivity = ?", in.Sensitivity)
	}
	return query
}

func (r *GormVideoRepository) Create(_ context.Context, tx *gorm.DB, video *models.Video) error {
	return useTx(r.db, tx).Create(video).Error
}

func (r *GormVideoRepository) GetByID(_ context.Context, tx *gorm.DB, videoID string) (models.Video, error) {
	var video models.Video
	err := useTx(r.db, tx).Where("id = ?", videoID).First(&video).Error
	return video, err
}

func (r *GormVideoRepository) Count(_ context.Context, tx *gorm.DB, in ListVideosInput) (int64, error) {
	var total int64
	err := r.filteredQuery(useTx(r.db, tx), in).Count(&total).Error
	return total, err
}

func (r *GormVideoRepository) List(_ context.Context, tx *gorm.DB, in ListVideosInput) ([]models.Video, error) {
	var videos []models.Video
	err := r.filteredQuery(useTx(r.db, tx), in).
		Order("created_at DESC").
		Offset(in.Offset).
		Limit(in.Limit).
		Find(&videos).Error
	return videos, err
}

func (r *GormVideoRepository) UpdateByID(_ context.Context, tx *gorm.DB, videoID string, updates map[string]interface{}) error {
	// Updates on a deleted record affects zero rows and reports no error;
	// a tick racing a delete is simply lost.
	return useTx(r.db, tx).Model(&models.Video{}).Where("id = ?", videoID).Updates(updates).Error
}

func (r *GormVideoRepository) DeleteByID(_ context.Context, tx *gorm.DB, videoID string) error {
	return useTx(r.db, tx).Where("id = ?", videoID).Delete(&models.Video{}).Error
}
