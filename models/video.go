package models

import "time"

const (
	VideoStatusUploading  = "uploading"
	VideoStatusProcessing = "processing"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)

const (
	SensitivitySafe    = "safe"
	SensitivityFlagged = "flagged"
)

// Video is mutated by the processing worker until it reaches a terminal
// status (completed or failed). Sensitivity is set only on completion.
type Video struct {
	ID                 string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID             string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Filename           string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName       string    `gorm:"type:varchar(255);not null" json:"original_name"`
	FileSize           int64     `gorm:"not null;default:0" json:"file_size"`
	Duration           *float64  `json:"duration"`
	Status             string    `gorm:"type:varchar(20);not null;default:uploading;index" json:"status"`
	Sensitivity        *string   `gorm:"type:varchar(20);index" json:"sensitivity"`
	UploadProgress     int       `gorm:"not null;default:0" json:"upload_progress"`
	ProcessingProgress int       `gorm:"not null;default:0" json:"processing_progress"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (v *Video) IsTerminal() bool {
	return v.Status == VideoStatusCompleted || v.Status == VideoStatusFailed
}
