package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hzrede/studio/internal/admin"
	"github.com/hzrede/studio/internal/backup"
	"github.com/hzrede/studio/internal/database"
	"github.com/hzrede/studio/internal/email"
	"github.com/hzrede/studio/internal/handler"
	"github.com/hzrede/studio/internal/imagegen"
	"github.com/hzrede/studio/internal/logging"
	"github.com/hzrede/studio/internal/push"
	"github.com/hzrede/studio/internal/server"
)

const (
	defaultPixCopyPaste = "1ef62854-d521-4d4d-aefc-edd8efc9127a"
	defaultPixQRCodeURL = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=1ef62854-d521-4d4d-aefc-edd8efc9127a"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("STUDIO_LOG_LEVEL"))

	port := envOr("STUDIO_PORT", "8080")
	dbPath := envOr("STUDIO_DB_PATH", "studio.db")

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var emailClient *email.Client
	if token := os.Getenv("STUDIO_POSTMARK_TOKEN"); token != "" {
		emailClient = email.NewClient(token,
			os.Getenv("STUDIO_FROM_EMAIL"),
			os.Getenv("STUDIO_NOTIFY_EMAIL"),
			logger.With("component", "email"))
	} else {
		// Unconfigured client logs the notice instead of sending it.
		emailClient = email.NewClient("", "", "", logger.With("component", "email"))
	}

	var generator imagegen.Generator
	if key := envOr("STUDIO_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")); key != "" {
		generator = imagegen.NewClient(key, os.Getenv("STUDIO_OPENAI_MODEL"))
	}

	backupInterval := 24 * time.Hour
	if v := os.Getenv("STUDIO_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			backupInterval = d
		}
	}

	cfg := server.Config{
		AdminCfg: admin.Config{
			Code:      envOr("STUDIO_ADMIN_CODE", "hz.net"),
			CodeHash:  os.Getenv("STUDIO_ADMIN_CODE_HASH"),
			GroupCode: envOr("STUDIO_GROUP_CODE", "hz2201"),
		},
		Pix: handler.PixConfig{
			CopyPaste: envOr("STUDIO_PIX_COPY_PASTE", defaultPixCopyPaste),
			QRCodeURL: envOr("STUDIO_PIX_QR_URL", defaultPixQRCodeURL),
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("STUDIO_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("STUDIO_VAPID_PRIVATE_KEY"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("STUDIO_S3_ENDPOINT"),
				Bucket:    os.Getenv("STUDIO_S3_BUCKET"),
				Region:    envOr("STUDIO_S3_REGION", "auto"),
				AccessKey: os.Getenv("STUDIO_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("STUDIO_S3_SECRET_KEY"),
			},
			DBPath:     dbPath,
			Passphrase: os.Getenv("STUDIO_BACKUP_PASSPHRASE"),
			Interval:   backupInterval,
		},
		Email:     emailClient,
		Generator: generator,
	}

	srv := server.New(db, cfg, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.Sweeper().Start(bgCtx)
	defer srv.Sweeper().Stop()

	srv.BackupManager().Start(bgCtx)
	defer srv.BackupManager().Stop()

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("studio running", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
