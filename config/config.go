package config

import "os"

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string

	// UploadDir is where received model artifacts are written before the
	// activation transaction opens.
	UploadDir string

	// ArtifactBucket, when set, mirrors committed artifacts to GCS.
	ArtifactBucket string

	// PublicDownloads exposes the download endpoint without authentication.
	PublicDownloads bool
}

func LoadConfig() Config {
	return Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		UploadDir:       os.Getenv("UPLOAD_DIR"),
		ArtifactBucket:  os.Getenv("ARTIFACT_BUCKET"),
		PublicDownloads: os.Getenv("PUBLIC_DOWNLOADS") == "true",
	}
}
