package registry

import (
	"mime/multipart"

	"model-registry-api/internal/activity"
	"model-registry-api/internal/storage"

	"gorm.io/gorm"
)

type RegistryServicePort interface {
	UploadModel(input UploadInput, filePath string, userID uint) (*Model, *ModelVersion, error)
	AddVersion(modelID uint, input NewVersionInput, filePath string, userID uint) (*ModelVersion, error)
	Rollback(modelID uint, userID uint) (*ModelVersion, error)

	ListActiveVersions(search string) ([]ActiveVersionRow, error)
	GetModelDetail(modelID uint) (*ModelDetail, error)
	ResolveDownload(versionID uint) (*ModelVersion, error)
	RecordDownload(version *ModelVersion, userID *uint)
}

// ArtifactStore is the file intake boundary: artifacts are written before
// the activation transaction opens and removed as a compensating action
// when the transaction does not commit.
type ArtifactStore interface {
	Save(fileHeader *multipart.FileHeader) (string, error)
	Remove(path string) error
	Exists(path string) bool
}

type LedgerPort interface {
	Record(tx *gorm.DB, entry activity.ActivityLog, metadata interface{}) error
}

var _ RegistryServicePort = (*RegistryService)(nil)
var _ ArtifactStore = (*storage.LocalStore)(nil)
var _ LedgerPort = (*activity.LedgerService)(nil)
