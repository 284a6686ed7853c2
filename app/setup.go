package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/course-catalog/api"
	"github.com/sahilchouksey/course-catalog/config"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/router"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/services/cron"
	"github.com/sahilchouksey/course-catalog/services/digitalocean"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/cache"
	"github.com/sahilchouksey/course-catalog/utils/logger"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	appLog, err := logger.New(env.LOG_MODE)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLog.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(env, appLog)
	if err != nil {
		appLog.Error("database connection failed; is PostgreSQL running?", "driver", env.DB_DRIVER, "error", err)
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to initialize database tables: %w", err)
	}

	// Redis is optional: without it the catalog runs uncached and unlocked
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			appLog.Warn("failed to connect to redis, continuing without it", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// Object storage is optional: without it image and file uploads return 503
	var objects services.ObjectStore
	if env.SpacesEnabled() {
		spaces, err := digitalocean.NewSpacesClient(digitalocean.SpacesConfig{
			AccessKey: env.DO_SPACES_KEY,
			SecretKey: env.DO_SPACES_SECRET,
			Bucket:    env.DO_SPACES_BUCKET,
			Region:    env.DO_SPACES_REGION,
			Endpoint:  env.DO_SPACES_ENDPOINT,
			CDNURL:    env.DO_SPACES_CDN_URL,
		})
		if err != nil {
			return fmt.Errorf("failed to create spaces client: %w", err)
		}
		objects = spaces
	} else {
		appLog.Warn("DO_SPACES_* not configured, image and file uploads are disabled")
	}

	registry := services.NewItemRegistry(store.GetDB())

	// Initialize Cron Manager (only if enabled via environment variable)
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(store.GetDB(), registry, auth.NewBlacklist(store.GetDB()), appLog)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			appLog.Warn("failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), (env.UPLOAD_MAX_MB+1)<<20, appLog)
	if err := router.SetupRoutes(server.GetEngine(), router.Dependencies{
		Store:    store,
		Env:      env,
		Log:      appLog,
		Registry: registry,
		Cache:    redisCache,
		Objects:  objects,
	}); err != nil {
		return err
	}

	// Stop on SIGINT/SIGTERM so the deferred cleanups run
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLog.Info("shutting down")
		if err := server.Shutdown(ctx); err != nil {
			appLog.Error("graceful shutdown failed", "error", err)
		}
	}()

	if err := server.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
