package registry

import (
	"time"

	"github.com/lib/pq"
)

type Model struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_models_name_owner" json:"name"`
	OwnerID   uint      `gorm:"not null;uniqueIndex:idx_models_name_owner" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ModelVersion rows are mutated only by the activation engine: at most one
// row per model carries is_active=true after a committed transaction.
type ModelVersion struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelID     uint           `gorm:"not null;uniqueIndex:idx_model_versions_model_version" json:"model_id"`
	Version     string         `gorm:"size:100;not null;uniqueIndex:idx_model_versions_model_version" json:"version"`
	Description string         `gorm:"type:text" json:"description"`
	FilePath    string         `gorm:"size:512;not null" json:"file_path"`
	UploadedBy  uint           `gorm:"not null;index" json:"uploaded_by"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	UploadDate  time.Time      `gorm:"autoCreateTime;column:upload_date" json:"upload_date"`
}

type UploadInput struct {
	Name        string `form:"name" binding:"required"`
	Version     string `form:"version" binding:"required"`
	Description string `form:"description"`
	Tags        string `form:"tags"`
}

type NewVersionInput struct {
	Version     string `form:"version" binding:"required"`
	Description string `form:"description"`
	Tags        string `form:"tags"`
}

// ActiveVersionRow is the list view: one row per model, its active version.
type ActiveVersionRow struct {
	ModelID     uint           `json:"model_id"`
	Name        string         `json:"name"`
	OwnerID     uint           `json:"owner_id"`
	VersionID   uint           `json:"version_id"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsActive    bool           `json:"is_active"`
	UploadDate  time.Time      `json:"upload_date"`
}

type ModelDetail struct {
	Model    Model          `json:"model"`
	Versions []ModelVersion `json:"versions"`
}

func (Model) TableName() string {
	return "models"
}

func (ModelVersion) TableName() string {
	return "model_versions"
}
