package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/radflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/radflow-backend/internal/http/middleware"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

const (
	RoleTechnician  = "technician"
	RoleRadiologist = "radiologist"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// ServiceName enables otelgin spans when non-empty.
	ServiceName    string
	AllowedOrigins []string
	// EnforceRoles requires the technician/radiologist role claims on sign-off routes.
	EnforceRoles bool

	AuthMiddleware   *httpMW.AuthMiddleware
	HealthHandler    *httpH.HealthHandler
	IngestionHandler *httpH.IngestionHandler
	StudyHandler     *httpH.StudyHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	role := func(name string) gin.HandlerFunc {
		if !cfg.EnforceRoles {
			return func(c *gin.Context) { c.Next() }
		}
		return httpMW.RequireRole(name)
	}

	// Ingestion
	if cfg.IngestionHandler != nil {
		protected.POST("/ingestions", role(RoleTechnician), cfg.IngestionHandler.Ingest)
		protected.POST("/acquisitions", role(RoleTechnician), cfg.IngestionHandler.UploadAcquisition)
	}

	// Studies
	if cfg.StudyHandler != nil {
		protected.GET("/studies/:id", cfg.StudyHandler.GetStudy)
		protected.POST("/studies/:id/technician-verify", role(RoleTechnician), cfg.StudyHandler.TechnicianVerify)
		protected.POST("/studies/:id/radiologist-approve", role(RoleRadiologist), cfg.StudyHandler.RadiologistApprove)
		protected.GET("/studies/:id/signatures/verify", cfg.StudyHandler.VerifyStudy)
		protected.GET("/studies/:id/signatures/:type/verify", cfg.StudyHandler.VerifySignature)
	}

	return r
}
