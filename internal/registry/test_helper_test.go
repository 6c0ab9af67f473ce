package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"model-registry-api/internal/activity"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// Test DB helpers (sqlite in-memory, isolated per test)
// -----------------------------------------------------------------------------

var testDBSeq uint64

// modelVersionForTest mirrors "model_versions" with tags as plain text, since
// sqlite cannot parse the postgres text[] column type. pq.StringArray
// round-trips through a text column unchanged.
type modelVersionForTest struct {
	ID          uint      `gorm:"primaryKey;column:id"`
	ModelID     uint      `gorm:"column:model_id"`
	Version     string    `gorm:"column:version"`
	Description string    `gorm:"column:description"`
	FilePath    string    `gorm:"column:file_path"`
	UploadedBy  uint      `gorm:"column:uploaded_by"`
	Tags        string    `gorm:"column:tags;type:text"`
	IsActive    bool      `gorm:"column:is_active"`
	UploadDate  time.Time `gorm:"column:upload_date"`
}

func (modelVersionForTest) TableName() string { return "model_versions" }

// userForTest creates the "users" table the ledger queries join against.
type userForTest struct {
	ID       uint   `gorm:"primaryKey;column:id"`
	FullName string `gorm:"column:full_name"`
	Email    string `gorm:"column:email"`
}

func (userForTest) TableName() string { return "users" }

func migrateTestSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	_ = db.Exec("PRAGMA foreign_keys = ON").Error

	if err := db.AutoMigrate(
		&Model{},
		&modelVersionForTest{},
		&activity.ActivityLog{},
		&userForTest{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	id := atomic.AddUint64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:registry_test_%d?mode=memory&cache=shared", id)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	migrateTestSchema(t, db)

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func breakDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
}

// -----------------------------------------------------------------------------
// Fake artifact store
// -----------------------------------------------------------------------------

type fakeArtifactStore struct {
	Saved     []string
	Removed   []string
	SaveOut   string
	SaveErr   error
	RemoveErr error
	Missing   map[string]bool
}

func (f *fakeArtifactStore) Save(fh *multipart.FileHeader) (string, error) {
	if f.SaveErr != nil {
		return "", f.SaveErr
	}
	path := f.SaveOut
	if path == "" {
		path = "uploads/models/" + fh.Filename
	}
	f.Saved = append(f.Saved, path)
	return path, f.SaveErr
}

func (f *fakeArtifactStore) Remove(path string) error {
	f.Removed = append(f.Removed, path)
	return f.RemoveErr
}

func (f *fakeArtifactStore) Exists(path string) bool {
	return !f.Missing[path]
}

func (f *fakeArtifactStore) removedOnce(path string) bool {
	n := 0
	for _, p := range f.Removed {
		if p == path {
			n++
		}
	}
	return n == 1
}

func newTestService(t *testing.T) (*RegistryService, *fakeArtifactStore, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	files := &fakeArtifactStore{}
	rs := &RegistryService{
		DB:     db,
		Ledger: &activity.LedgerService{DB: db},
		Files:  files,
	}
	return rs, files, db
}

// -----------------------------------------------------------------------------
// Router / request helpers for controller tests
// -----------------------------------------------------------------------------

func mockAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) != "Bearer test" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		rawID := strings.TrimSpace(c.GetHeader("X-UserID"))
		if rawID == "" {
			rawID = "1"
		}
		typ := strings.ToLower(strings.TrimSpace(c.GetHeader("X-UserID-Type")))

		switch typ {
		case "uint":
			u, _ := strconv.ParseUint(rawID, 10, 64)
			c.Set("userID", uint(u))
		case "string":
			c.Set("userID", rawID) // invalid type intentionally
		default:
			// float64 like JWT claims
			f, _ := strconv.ParseFloat(rawID, 64)
			c.Set("userID", f)
		}

		c.Next()
	}
}

func setupRouterForController(rc *RegistryController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	g := r.Group("/api/models")
	g.Use(mockAuthMiddleware())
	{
		g.POST("/upload", rc.Upload)
		g.GET("", rc.List)
		g.GET("/:modelId", rc.Detail)
		g.POST("/:modelId/new-version", rc.NewVersion)
		g.POST("/:modelId/rollback", rc.Rollback)
	}
	r.GET("/api/models/download/:versionId", rc.Download)

	return r
}

func doReq(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newJSONReq(method, url string, body any, headers map[string]string) *http.Request {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func newMultipartReq(method, url string, fields map[string][]string, fileField string, fileName string, fileBytes []byte, headers map[string]string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, vals := range fields {
		for _, v := range vals {
			_ = w.WriteField(k, v)
		}
	}

	if fileField != "" {
		fw, _ := w.CreateFormFile(fileField, fileName)
		_, _ = fw.Write(fileBytes)
	}

	_ = w.Close()

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// -----------------------------------------------------------------------------
// Fake registry service
// -----------------------------------------------------------------------------

type fakeRegistryService struct {
	Called map[string]int

	LastUploadInput  UploadInput
	LastUploadPath   string
	LastUploadUserID uint

	LastAddModelID uint
	LastAddInput   NewVersionInput
	LastAddPath    string
	LastAddUserID  uint

	LastRollbackModelID uint
	LastRollbackUserID  uint

	LastSearch string

	LastDownloadVersion *ModelVersion
	LastDownloadUserID  *uint

	UploadModelOut   *Model
	UploadVersionOut *ModelVersion
	UploadErr        error

	AddVersionOut *ModelVersion
	AddVersionErr error

	RollbackOut *ModelVersion
	RollbackErr error

	ListOut []ActiveVersionRow
	ListErr error

	DetailOut *ModelDetail
	DetailErr error

	ResolveOut *ModelVersion
	ResolveErr error
}

func (f *fakeRegistryService) bump(name string) {
	if f.Called == nil {
		f.Called = map[string]int{}
	}
	f.Called[name]++
}

func (f *fakeRegistryService) UploadModel(input UploadInput, filePath string, userID uint) (*Model, *ModelVersion, error) {
	f.bump("UploadModel")
	f.LastUploadInput = input
	f.LastUploadPath = filePath
	f.LastUploadUserID = userID
	return f.UploadModelOut, f.UploadVersionOut, f.UploadErr
}

func (f *fakeRegistryService) AddVersion(modelID uint, input NewVersionInput, filePath string, userID uint) (*ModelVersion, error) {
	f.bump("AddVersion")
	f.LastAddModelID = modelID
	f.LastAddInput = input
	f.LastAddPath = filePath
	f.LastAddUserID = userID
	return f.AddVersionOut, f.AddVersionErr
}

func (f *fakeRegistryService) Rollback(modelID uint, userID uint) (*ModelVersion, error) {
	f.bump("Rollback")
	f.LastRollbackModelID = modelID
	f.LastRollbackUserID = userID
	return f.RollbackOut, f.RollbackErr
}

func (f *fakeRegistryService) ListActiveVersions(search string) ([]ActiveVersionRow, error) {
	f.bump("ListActiveVersions")
	f.LastSearch = search
	return f.ListOut, f.ListErr
}

func (f *fakeRegistryService) GetModelDetail(modelID uint) (*ModelDetail, error) {
	f.bump("GetModelDetail")
	return f.DetailOut, f.DetailErr
}

func (f *fakeRegistryService) ResolveDownload(versionID uint) (*ModelVersion, error) {
	f.bump("ResolveDownload")
	return f.ResolveOut, f.ResolveErr
}

func (f *fakeRegistryService) RecordDownload(version *ModelVersion, userID *uint) {
	f.bump("RecordDownload")
	f.LastDownloadVersion = version
	f.LastDownloadUserID = userID
}
