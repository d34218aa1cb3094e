package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AvivElectis/electisSpace-sub007/internal/aims"
	"github.com/AvivElectis/electisSpace-sub007/internal/config"
	"github.com/AvivElectis/electisSpace-sub007/internal/crypto"
	"github.com/AvivElectis/electisSpace-sub007/internal/database"
	"github.com/AvivElectis/electisSpace-sub007/internal/logger"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// aims-check: 运维连通性检查
// 按租户或站点探测 AIMS 厂家云是否可登录（走网关的 token 路径，不发额外探测请求）
func main() {
	var companyID = flag.String("company", "", "Tenant ID to check (company-level health)")
	var storeID = flag.String("store", "", "Store ID to check (store-level health)")
	var timeout = flag.Duration("timeout", 30*time.Second, "Overall check timeout")
	flag.Parse()

	if *companyID == "" && *storeID == "" {
		log.Fatal("usage: aims-check -company <tenant_id> | -store <store_id>")
	}

	cfg := config.Load()
	if cfg.AIMS.CredentialKey == "" {
		log.Fatal("AIMS_CREDENTIAL_KEY is not set")
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 控制台 logger：重试过程和登录失败原因直接打给操作者
	zlog, err := logger.NewLogger(cfg.Log.Level, "console", "aims-check")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	cipher, err := crypto.NewCipher(cfg.AIMS.CredentialKey)
	if err != nil {
		log.Fatalf("Failed to init cipher: %v", err)
	}

	tenantsRepo := repository.NewPostgresTenantsRepository(db)
	storesRepo := repository.NewPostgresStoresRepository(db)
	settingsRepo := repository.NewPostgresSettingsRepository(db)

	client := aims.NewClient(cfg.AIMS.RequestTimeout, zlog)
	credSource := aims.NewCredentialSource(tenantsRepo, storesRepo, cipher, zlog)
	gateway := aims.NewGateway(client, credSource, settingsRepo, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var healthy bool
	var scope string
	if *storeID != "" {
		scope = fmt.Sprintf("store %s", *storeID)
		healthy = gateway.CheckHealth(ctx, *storeID)
	} else {
		scope = fmt.Sprintf("company %s", *companyID)
		healthy = gateway.CheckCompanyHealth(ctx, *companyID)
	}

	if healthy {
		fmt.Printf("OK: AIMS reachable for %s\n", scope)
		return
	}
	fmt.Printf("FAIL: AIMS unreachable for %s (unconfigured credentials or login failure)\n", scope)
	os.Exit(1)
}
