package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stockex-offline-sync/internal/broadcast"
	"stockex-offline-sync/internal/cache"
	"stockex-offline-sync/internal/config"
	"stockex-offline-sync/internal/connectivity"
	"stockex-offline-sync/internal/handler"
	"stockex-offline-sync/internal/middleware"
	"stockex-offline-sync/internal/notify"
	"stockex-offline-sync/internal/remote"
	"stockex-offline-sync/internal/repository"
	"stockex-offline-sync/internal/router"
	"stockex-offline-sync/internal/scanner"
	"stockex-offline-sync/internal/service"
	"stockex-offline-sync/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Stockex offline sync agent...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize local store based on config
	var store repository.LocalStore
	switch cfg.Store.Type {
	case "mongodb", "mongo":
		mongoStore, err := repository.NewMongoDBStore(cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB: %v", err)
		}
		store = mongoStore
		log.Println("MongoDB local store initialized")
	case "postgres", "postgresql":
		pgStore, err := repository.NewPostgresStore(cfg.Store.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		store = pgStore
		log.Println("PostgreSQL local store initialized")
	case "mysql":
		mysqlStore, err := repository.NewMySQLStore(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL local store initialized")
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			log.Fatalf("Failed to create store directory: %v", err)
		}
		sqliteStore, err := repository.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite local store initialized")
	}
	defer store.Close()

	// Response cache for the strategy layer (Redis is optional)
	var responses cache.ResponseCache = cache.NewMemoryCache()
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisCacheConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.Prefix + ":responses",
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, using memory: %v", err)
		} else {
			defer redisCache.Close()
			responses = redisCache
			log.Println("Redis response cache initialized")
		}
	}

	// Broadcast bus between the strategy layer and the coordinator
	var bus broadcast.Bus = broadcast.NewMemoryBus()
	if cfg.Bus.Type == "redis" {
		redisBus, err := broadcast.NewRedisBus(broadcast.RedisBusConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Channel:  cfg.Bus.Channel,
		})
		if err != nil {
			log.Printf("Warning: Redis bus unavailable, using memory: %v", err)
		} else {
			bus = redisBus
			log.Println("Redis broadcast bus initialized")
		}
	}
	defer bus.Close()

	// Cache strategy layer in front of the remote ORM
	upstream, err := url.Parse(cfg.Remote.BaseURL)
	if err != nil || upstream.Host == "" {
		log.Fatalf("Invalid REMOTE_BASE_URL %q", cfg.Remote.BaseURL)
	}
	layer := strategy.New(strategy.Config{
		Prefix:           cfg.Cache.Prefix,
		Version:          cfg.Cache.Version,
		OfflinePage:      cfg.Cache.OfflinePage,
		StaticAssets:     cfg.Cache.StaticAssets,
		StaticPrefixes:   cfg.Cache.StaticPrefix,
		StaticExtensions: cfg.Cache.StaticExt,
		APIPrefixes:      cfg.Cache.APIPrefix,
	}, upstream, responses, bus, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout)
	stored := layer.Install(ctx)
	if err := layer.Activate(ctx); err != nil {
		log.Printf("Warning: cache activation failed: %v", err)
	}
	cancel()
	log.Printf("Cache layer ready: %s (%d static assets)", layer.StaticGeneration(), stored)

	// Remote ORM client, routed through the cache layer
	client := remote.NewClient(remote.Config{
		BaseURL:     cfg.Remote.BaseURL,
		SyncPath:    cfg.Remote.SyncPath,
		SearchPath:  cfg.Remote.SearchPath,
		AddLinePath: cfg.Remote.AddLinePath,
		Timeout:     cfg.Remote.Timeout,
	}, layer)

	// Connectivity monitor, notifications and sync
	monitor := connectivity.NewMonitor(connectivity.Config{
		ProbeURL: cfg.ProbeURL(),
		Interval: cfg.Connectivity.ProbeInterval,
		Timeout:  cfg.Connectivity.ProbeTimeout,
	}, false)
	hub := notify.NewHub()
	engine := service.NewSyncEngine(store, client, hub, monitor.Online)

	coord := service.NewCoordinator(service.CoordinatorConfig{
		Store:        store,
		Remote:       client,
		Engine:       engine,
		Connectivity: monitor,
		Bus:          bus,
		Notifier:     hub,
		Debouncer:    scanner.NewDebouncer(cfg.Scanner.Debounce),
		CycleTimeout: cfg.Sync.CycleTimeout,
	})
	if err := coord.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start coordinator: %v", err)
	}
	monitor.Start()

	scheduler := service.NewSyncScheduler(engine, service.SchedulerConfig{
		Interval:     cfg.Sync.PollInterval,
		CycleTimeout: cfg.Sync.CycleTimeout,
	})
	scheduler.Start()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, store, monitor.Online)
	inventoryHandler := handler.NewInventoryHandler(coord, store)
	productHandler := handler.NewProductHandler(coord)
	syncHandler := handler.NewSyncHandler(coord)
	platformHandler := handler.NewPlatformHandler(layer)
	adminHandler := handler.NewAdminHandler(coord, layer, hub, cfg.Store.Type)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: cfg.Auth.APIKeys,
	})

	// Create router
	r := router.New(router.Config{
		Handler:          healthHandler,
		InventoryHandler: inventoryHandler,
		ProductHandler:   productHandler,
		SyncHandler:      syncHandler,
		PlatformHandler:  platformHandler,
		AdminHandler:     adminHandler,
		Events:           hub.ServeWS,
		Proxy:            layer.Proxy(),
		AuthMiddleware:   authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop background work before the stores it writes to are closed
	scheduler.Stop()
	coord.Close()
	monitor.Stop()
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
