package registry

import (
	"context"
	"errors"
	"log"
	"strings"

	"model-registry-api/internal/activity"
	"model-registry-api/internal/storage"
	"model-registry-api/internal/util"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateVersion  = errors.New("This version already exists for this model")
	ErrModelNotFound     = errors.New("Model not found")
	ErrVersionNotFound   = errors.New("Version not found")
	ErrNotOwner          = errors.New("You are not authorized to update this model")
	ErrNoPreviousVersion = errors.New("No previous version available for rollback")
	ErrFileMissing       = errors.New("Model file is missing from storage")
)

type RegistryService struct {
	DB     *gorm.DB
	Ledger LedgerPort
	Files  ArtifactStore
	Bucket string
}

// lockModel takes a row lock on the model so concurrent activations for the
// same model serialize. SQLite has no FOR UPDATE; its writes serialize on the
// database lock instead, so the clause is only applied on postgres.
func lockModel(tx *gorm.DB, modelID uint) (*Model, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model Model
	if err := q.First(&model, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &model, nil
}

// activateVersion inserts the new version as active, then deactivates every
// other version of the model. Runs inside the caller's transaction; the
// ledger row commits or rolls back together with the version rows.
func (rs *RegistryService) activateVersion(tx *gorm.DB, model *Model, version ModelVersion, action string, message string) (*ModelVersion, error) {
	var count int64
	if err := tx.Model(&ModelVersion{}).
		Where("model_id = ? AND version = ?", model.ID, version.Version).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateVersion
	}

	version.ModelID = model.ID
	version.IsActive = true
	if err := tx.Create(&version).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&ModelVersion{}).
		Where("model_id = ? AND id <> ?", model.ID, version.ID).
		Update("is_active", false).Error; err != nil {
		return nil, err
	}

	if err := rs.Ledger.Record(tx, activity.ActivityLog{
		UserID:    &version.UploadedBy,
		ModelID:   &model.ID,
		VersionID: &version.ID,
		Action:    action,
		Message:   message,
	}, map[string]interface{}{
		"model":   model.Name,
		"version": version.Version,
	}); err != nil {
		return nil, err
	}

	return &version, nil
}

// UploadModel registers a model (creating it on first upload) and activates
// the uploaded version. The artifact at filePath is removed if the
// transaction does not commit.
func (rs *RegistryService) UploadModel(input UploadInput, filePath string, userID uint) (model *Model, version *ModelVersion, err error) {
	defer func() {
		if err != nil {
			rs.discardArtifact(filePath)
		}
	}()

	err = rs.DB.Transaction(func(tx *gorm.DB) error {
		var m Model
		findErr := tx.Where("name = ? AND owner_id = ?", input.Name, userID).First(&m).Error
		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			m = Model{Name: input.Name, OwnerID: userID}
			if createErr := tx.Create(&m).Error; createErr != nil {
				return createErr
			}
		} else {
			locked, lockErr := lockModel(tx, m.ID)
			if lockErr != nil {
				return lockErr
			}
			m = *locked
		}

		v, actErr := rs.activateVersion(tx, &m, ModelVersion{
			Version:     input.Version,
			Description: input.Description,
			FilePath:    filePath,
			UploadedBy:  userID,
			Tags:        pq.StringArray(util.ParseCommaSeparatedTags(input.Tags)),
		}, activity.ActionUpload, "Uploaded model "+input.Name+" version "+input.Version)
		if actErr != nil {
			return actErr
		}

		model = &m
		version = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	rs.mirrorArtifact(model.Name, version.Version, filePath)
	return model, version, nil
}

// AddVersion activates a new version of an existing model. Ownership is
// checked before the transaction opens; the artifact is removed on any
// failure after that point.
func (rs *RegistryService) AddVersion(modelID uint, input NewVersionInput, filePath string, userID uint) (version *ModelVersion, err error) {
	defer func() {
		if err != nil {
			rs.discardArtifact(filePath)
		}
	}()

	var m Model
	if err = rs.DB.First(&m, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrModelNotFound
		}
		return nil, err
	}
	if m.OwnerID != userID {
		return nil, ErrNotOwner
	}

	err = rs.DB.Transaction(func(tx *gorm.DB) error {
		locked, lockErr := lockModel(tx, modelID)
		if lockErr != nil {
			return lockErr
		}

		v, actErr := rs.activateVersion(tx, locked, ModelVersion{
			Version:     input.Version,
			Description: input.Description,
			FilePath:    filePath,
			UploadedBy:  userID,
			Tags:        pq.StringArray(util.ParseCommaSeparatedTags(input.Tags)),
		}, activity.ActionNewVersion, "Uploaded new version "+input.Version+" of model "+locked.Name)
		if actErr != nil {
			return actErr
		}

		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.mirrorArtifact(m.Name, version.Version, filePath)
	return version, nil
}

// Rollback re-activates the version immediately preceding the active one in
// upload order. The oldest version has no predecessor, so rolling back from
// it fails with ErrNoPreviousVersion.
func (rs *RegistryService) Rollback(modelID uint, userID uint) (version *ModelVersion, err error) {
	var m Model
	if err = rs.DB.First(&m, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrModelNotFound
		}
		return nil, err
	}
	if m.OwnerID != userID {
		return nil, ErrNotOwner
	}

	err = rs.DB.Transaction(func(tx *gorm.DB) error {
		locked, lockErr := lockModel(tx, modelID)
		if lockErr != nil {
			return lockErr
		}

		var versions []ModelVersion
		if listErr := tx.Where("model_id = ?", modelID).
			Order("upload_date ASC, id ASC").
			Find(&versions).Error; listErr != nil {
			return listErr
		}
		if len(versions) < 2 {
			return ErrNoPreviousVersion
		}

		activeIdx := -1
		for i, v := range versions {
			if v.IsActive {
				activeIdx = i
				break
			}
		}
		if activeIdx <= 0 {
			return ErrNoPreviousVersion
		}

		current := versions[activeIdx]
		previous := versions[activeIdx-1]

		if updErr := tx.Model(&ModelVersion{}).
			Where("id = ?", current.ID).
			Update("is_active", false).Error; updErr != nil {
			return updErr
		}
		if updErr := tx.Model(&ModelVersion{}).
			Where("id = ?", previous.ID).
			Update("is_active", true).Error; updErr != nil {
			return updErr
		}

		if recErr := rs.Ledger.Record(tx, activity.ActivityLog{
			UserID:    &userID,
			ModelID:   &locked.ID,
			VersionID: &previous.ID,
			Action:    activity.ActionRollback,
			Message:   "Rolled back model " + locked.Name + " from version " + current.Version + " to version " + previous.Version,
		}, map[string]interface{}{
			"model": locked.Name,
			"from":  current.Version,
			"to":    previous.Version,
		}); recErr != nil {
			return recErr
		}

		previous.IsActive = true
		version = &previous
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ListActiveVersions returns one row per model, joined with its active
// version. An optional search term filters on model name.
func (rs *RegistryService) ListActiveVersions(search string) ([]ActiveVersionRow, error) {
	rows := []ActiveVersionRow{}
	q := rs.DB.Table("models m").
		Select(`m.id AS model_id, m.name, m.owner_id,
			v.id AS version_id, v.version, v.description, v.tags, v.is_active, v.upload_date`).
		Joins("JOIN model_versions v ON v.model_id = m.id").
		Where("v.is_active = ?", true)

	if search != "" {
		q = q.Where("LOWER(m.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := q.Order("v.upload_date DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetModelDetail returns the model and its full version history, newest
// first.
func (rs *RegistryService) GetModelDetail(modelID uint) (*ModelDetail, error) {
	var m Model
	if err := rs.DB.First(&m, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	versions := []ModelVersion{}
	if err := rs.DB.Where("model_id = ?", modelID).
		Order("upload_date DESC, id DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}

	return &ModelDetail{Model: m, Versions: versions}, nil
}

// ResolveDownload looks up a version and verifies its artifact is still on
// disk before anything is streamed.
func (rs *RegistryService) ResolveDownload(versionID uint) (*ModelVersion, error) {
	var v ModelVersion
	if err := rs.DB.First(&v, versionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	if !rs.Files.Exists(v.FilePath) {
		return nil, ErrFileMissing
	}
	return &v, nil
}

// RecordDownload writes the download ledger row. userID is nil when
// downloads are served publicly.
func (rs *RegistryService) RecordDownload(version *ModelVersion, userID *uint) {
	if err := rs.Ledger.Record(nil, activity.ActivityLog{
		UserID:    userID,
		ModelID:   &version.ModelID,
		VersionID: &version.ID,
		Action:    activity.ActionDownload,
		Message:   "Downloaded version " + version.Version,
	}, map[string]interface{}{
		"version": version.Version,
		"file":    version.FilePath,
	}); err != nil {
		log.Printf("Failed to record download for version %d: %v", version.ID, err)
	}
}

func (rs *RegistryService) discardArtifact(filePath string) {
	if err := rs.Files.Remove(filePath); err != nil {
		log.Printf("Failed to remove orphaned artifact %s: %v", filePath, err)
	}
}

// mirrorArtifact copies a committed artifact to the configured GCS bucket.
// Best effort: the local copy stays authoritative and mirror failures are
// only logged.
func (rs *RegistryService) mirrorArtifact(modelName, version, filePath string) {
	if rs.Bucket == "" {
		return
	}
	go func() {
		objectName := storage.ArtifactObjectName(modelName, version, filePath)
		if _, _, err := storage.MirrorArtifactToGCS(context.Background(), filePath, rs.Bucket, objectName); err != nil {
			log.Printf("Failed to mirror artifact %s to bucket %s: %v", filePath, rs.Bucket, err)
		}
	}()
}
