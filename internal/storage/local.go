package storage

import (
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultUploadDir = "uploads/models"

// LocalStore writes received model artifacts to disk. The write happens
// before the activation transaction opens; Remove is the compensating
// delete for every non-commit exit path.
type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = defaultUploadDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// Save stores the uploaded file under a unique name and returns its path.
func (s *LocalStore) Save(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.Dir, uniqueName(fileHeader.Filename)))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

func (s *LocalStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the stored artifact is still on disk.
func (s *LocalStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func uniqueName(original string) string {
	ext := filepath.Ext(original)
	base := strings.ReplaceAll(strings.TrimSuffix(filepath.Base(original), ext), " ", "_")
	return fmt.Sprintf("%s-%d-%d%s", base, time.Now().UnixMilli(), rand.Intn(1e9), ext)
}
