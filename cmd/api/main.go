package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"casedesk/api/internal/app"
	"casedesk/api/internal/archive"
	"casedesk/api/internal/audit"
	"casedesk/api/internal/config"
	"casedesk/api/internal/email"
	"casedesk/api/internal/localstore"
	"casedesk/api/internal/notify"
	"casedesk/api/internal/search"
	"casedesk/api/internal/session"
	"casedesk/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	local, err := localstore.New(cfg.LocalStoreDir)
	if err != nil {
		log.Fatalf("failed to create local store dir: %v", err)
	}

	var auditService *audit.Service
	if strings.TrimSpace(cfg.AuditRepoDir) != "" {
		if err := os.MkdirAll(cfg.AuditRepoDir, 0o755); err != nil {
			log.Fatalf("failed to create audit dir: %v", err)
		}
		auditService = audit.New(cfg.AuditRepoDir)
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var archiveService *archive.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiveService, err = archive.NewService(archive.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		if err := archiveService.EnsureBucket(ctx); err != nil {
			log.Fatalf("minio bucket setup failed: %v", err)
		}
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	deps := app.Deps{
		Store:    dataStore,
		Sessions: dataStore,
		Local:    local,
		Search:   searchService,
		Archive:  archiveService,
		Audit:    auditService,
		Email:    emailService,
		Notifier: notify.Nop{},
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore

		notifier, err := notify.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis pubsub connection failed: %v", err)
		}
		defer notifier.Close()
		deps.Notifier = notifier
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
	}

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("CaseDesk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
