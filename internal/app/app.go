package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/data/db"
	"github.com/yungbote/radflow-backend/internal/data/repos"
	"github.com/yungbote/radflow-backend/internal/http"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Router    *gin.Engine
	Cfg       Config
	Repos     repos.Set
	Services  Services
	Metrics   *observability.Metrics
	Publisher events.Publisher

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{ServiceName: cfg.ServiceName})
	metrics := observability.Init(log)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	log.Info("Wiring repos...")
	reposet := repos.NewSet(theDB, log)

	signer, err := buildSigner(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	publisher, err := events.New(ctx, cfg.Events, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init events: %w", err)
	}
	archive, err := resolveArchive(ctx, log, cfg.Archive)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(serviceDeps{
		DB:        theDB,
		Log:       log,
		Cfg:       cfg,
		Repos:     reposet,
		Metrics:   metrics,
		Signer:    signer,
		Publisher: publisher,
		Archive:   archive,
	})
	handlerset := wireHandlers(log, cfg, theDB, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Publisher:    publisher,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background collectors and the metrics endpoint.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	if a.Cfg.Events.Backend == events.BackendRedis {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.Events.RedisAddr)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Log.Warn("Event publisher close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
