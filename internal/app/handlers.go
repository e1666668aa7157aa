package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/http"
	httpH "github.com/yungbote/radflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/radflow-backend/internal/http/middleware"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Ingestion *httpH.IngestionHandler
	Study     *httpH.StudyHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(dbPinger(db)),
		Ingestion: httpH.NewIngestionHandler(svc.Ingestion, svc.Intake, cfg.MaxUploadBytes),
		Study:     httpH.NewStudyHandler(svc.Studies, svc.Signoff, svc.Verifier),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		AllowedOrigins:   cfg.AllowedOrigins,
		EnforceRoles:     cfg.EnforceRoles,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
		HealthHandler:    handlers.Health,
		IngestionHandler: handlers.Ingestion,
		StudyHandler:     handlers.Study,
	})
}

func dbPinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
