package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/aims"
	"github.com/AvivElectis/electisSpace-sub007/internal/config"
	"github.com/AvivElectis/electisSpace-sub007/internal/crypto"
	"github.com/AvivElectis/electisSpace-sub007/internal/database"
	httpapi "github.com/AvivElectis/electisSpace-sub007/internal/http"
	"github.com/AvivElectis/electisSpace-sub007/internal/logger"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
	"github.com/AvivElectis/electisSpace-sub007/internal/service"
	"github.com/AvivElectis/electisSpace-sub007/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "electis-space")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// Repositories: DB 就绪用 Postgres，否则回退内存实现（本地联测不依赖 DB）
	var db *sql.DB
	var tenantsRepo repository.TenantsRepository
	var storesRepo repository.StoresRepository
	var spacesRepo repository.SpacesRepository
	var settingsRepo repository.SettingsRepository

	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for electis-space")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		if err := repository.EnsureSchema(context.Background(), db); err != nil {
			log.Fatal("Failed to ensure schema", zap.Error(err))
		}
		tenantsRepo = repository.NewPostgresTenantsRepository(db)
		storesRepo = repository.NewPostgresStoresRepository(db)
		spacesRepo = repository.NewPostgresSpacesRepository(db)
		settingsRepo = repository.NewPostgresSettingsRepository(db)
	} else {
		tenantsRepo = repository.NewMemoryTenantsRepo()
		storesRepo = repository.NewMemoryStoresRepo()
		spacesRepo = repository.NewMemorySpacesRepo()
		settingsRepo = repository.NewMemorySettingsRepo()
	}

	// 凭据加密器：密钥未配置时租户无法保存 AIMS 密码，但服务其余部分照常工作
	var cipher *crypto.Cipher
	if cfg.AIMS.CredentialKey != "" {
		c, err := crypto.NewCipher(cfg.AIMS.CredentialKey)
		if err != nil {
			log.Fatal("Failed to init credential cipher", zap.Error(err))
		}
		cipher = c
	} else {
		log.Warn("AIMS_CREDENTIAL_KEY is not set, AIMS credential management is disabled")
		cipher, _ = crypto.NewCipher("dev-only-insecure-key")
	}

	// AIMS 网关
	aimsClient := aims.NewClient(cfg.AIMS.RequestTimeout, log)
	credSource := aims.NewCredentialSource(tenantsRepo, storesRepo, cipher, log)
	gateway := aims.NewGateway(aimsClient, credSource, settingsRepo, log)

	articleService := service.NewArticleService(gateway, spacesRepo, kv, cfg.AIMS.SnapshotTTL, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterAimsRoutes(httpapi.NewAimsHandler(gateway, articleService, log))
	router.RegisterAdminTenantRoutes(httpapi.NewTenantsHandler(tenantsRepo, settingsRepo, cipher, gateway, log))
	router.RegisterAdminSpaceRoutes(httpapi.NewSpacesHandler(storesRepo, spacesRepo, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
