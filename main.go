package main

import (
	"time"

	"attachd/config"
	"attachd/models"
	"attachd/routes"
	"attachd/storage/s3"
	"attachd/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Attachment{})

	blobs, err := s3.New(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		UseSSL:         cfg.S3UseSSL,
		ForcePathStyle: cfg.S3ForcePathStyle,
		Timeout:        time.Duration(cfg.S3TimeoutSeconds) * time.Second,
	})
	if err != nil {
		utils.Sugar.Fatalf("object store init failed: %v", err)
	}

	r := routes.SetupRouter(db, blobs)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
