package activity

import (
	"time"

	"gorm.io/datatypes"
)

// Ledger actions. One row is appended per completed operation.
const (
	ActionUpload     = "upload"
	ActionNewVersion = "new-version"
	ActionRollback   = "rollback"
	ActionDownload   = "download"
)

// ActivityLog is append-only: rows are never updated or deleted, and they
// reference users/models/versions by id only so they can outlive them.
type ActivityLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id,omitempty"`
	ModelID   *uint          `gorm:"index" json:"model_id,omitempty"`
	VersionID *uint          `gorm:"index" json:"version_id,omitempty"`
	Action    string         `gorm:"size:50;not null" json:"action"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// LogRow joins display fields for the API; missing referents come back null.
type LogRow struct {
	ActivityLog
	UserName      *string `json:"user_name" gorm:"column:user_name"`
	UserEmail     *string `json:"user_email" gorm:"column:user_email"`
	ModelName     *string `json:"model_name" gorm:"column:model_name"`
	VersionNumber *string `json:"version_number" gorm:"column:version_number"`
}

type LogFilter struct {
	ModelID *uint
	UserID  *uint
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
