package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
)

// MirrorArtifactToGCS copies a committed artifact to gs://bucket/objectName.
// Mirroring runs after the activation transaction commits and is best-effort:
// callers log failures instead of surfacing them.
func MirrorArtifactToGCS(ctx context.Context, localPath, bucket, objectName string) (string, int64, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", 0, err
	}
	defer client.Close()

	f, err := os.Open(localPath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	w := client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return "", 0, err
	}
	if err := w.Close(); err != nil {
		return "", 0, err
	}

	return fmt.Sprintf("gs://%s/%s", bucket, objectName), n, nil
}

// ArtifactObjectName builds the mirror path for a committed version.
func ArtifactObjectName(modelName, version, localPath string) string {
	base := localPath
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return fmt.Sprintf("models/%s/%s/%s", sanitizePart(modelName), sanitizePart(version), base)
}

func sanitizePart(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "_")
	re := regexp.MustCompile(`[^a-z0-9._\-]`)
	s = re.ReplaceAllString(s, "")
	if s == "" {
		return "unknown"
	}
	return s
}
