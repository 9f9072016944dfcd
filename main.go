package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/routes"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	users, blogs, err := openStores(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open stores: %v", err)
	}

	storage, err := openUploads(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open upload storage: %v", err)
	}

	tokens, err := utils.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		utils.Sugar.Fatalf("token service: %v", err)
	}

	rc := utils.NewRedisClient(cfg)
	r := routes.SetupRouter(cfg, routes.Deps{
		Users:     users,
		Blogs:     blogs,
		Tokens:    tokens,
		Uploads:   storage,
		Cache:     utils.NewCache(rc, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		Blacklist: utils.NewTokenBlacklist(rc),
	})

	utils.Sugar.Infof("Starting server on port %s (store=%s, uploads=%s)", cfg.AppPort, cfg.StoreBackend, cfg.UploadBackend)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openStores(cfg config.AppConfig) (store.UserStore, store.BlogStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMySQL:
		db := config.InitDatabase(&models.User{}, &models.Blog{}, &models.Like{}, &models.Comment{})
		return store.NewGormUserStore(db), store.NewGormBlogStore(db), nil
	case config.StoreBackendFile:
		users, err := store.NewFileUserStore(filepath.Join(cfg.DataDir, "users"))
		if err != nil {
			return nil, nil, err
		}
		blogs, err := store.NewFileBlogStore(filepath.Join(cfg.DataDir, "blogs"))
		if err != nil {
			return nil, nil, err
		}
		return users, blogs, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openUploads(cfg config.AppConfig) (uploads.Storage, error) {
	switch cfg.UploadBackend {
	case config.UploadBackendMinIO:
		return uploads.NewMinIOStorage(context.Background(), cfg)
	case config.UploadBackendLocal:
		return uploads.NewLocalStorage(cfg.UploadDir, routes.UploadURLPrefix, int64(cfg.MaxUploadMB)<<20)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}
