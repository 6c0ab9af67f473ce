package main

import (
	"log"
	"model-registry-api/config"
	"model-registry-api/internal/activity"
	"model-registry-api/internal/auth"
	"model-registry-api/internal/registry"
	"model-registry-api/internal/storage"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	dsn := "host=" + cfg.DBHost +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" port=" + cfg.DBPort +
		" sslmode=disable"

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&auth.User{},
		&registry.Model{},
		&registry.ModelVersion{},
		&activity.ActivityLog{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fileStore, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("Failed to prepare upload directory:", err)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	ledgerService := &activity.LedgerService{DB: db}

	authService := &auth.AuthService{DB: db}
	auth.RegisterRoutes(r, authService)

	registryService := &registry.RegistryService{
		DB:     db,
		Ledger: ledgerService,
		Files:  fileStore,
		Bucket: cfg.ArtifactBucket,
	}
	registry.RegisterRoutes(r, registryService, fileStore, ledgerService, cfg.PublicDownloads)

	activity.RegisterRoutes(r, ledgerService)

	// --- Cloud Run expects plain HTTP, on $PORT, bind to 0.0.0.0 ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on 0.0.0.0:%s ...", port)
	log.Fatal(r.Run("0.0.0.0:" + port))
}
