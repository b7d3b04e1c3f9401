package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/handler"
	"pixelpaws-server/internal/metrics"
	"pixelpaws-server/internal/middleware"
	"pixelpaws-server/internal/store"
)

type Deps struct {
	Store       *store.Store
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	ServiceName string
	// Now overrides the clock used for device updated_at stamps.
	Now func() time.Time
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(deps.Logger, deps.Metrics))
	r.Use(middleware.CORS(deps.CORSOrigins))

	healthHandler := &handler.HealthHandler{Store: deps.Store, Service: deps.ServiceName, Logger: deps.Logger}
	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := r.Group("/v1")

	catHandler := &handler.CatHandler{Store: deps.Store, Metrics: deps.Metrics, Logger: deps.Logger}
	v1.GET("/cats", catHandler.List)
	v1.GET("/cats/:catId/manifest", catHandler.Manifest)

	deviceHandler := &handler.DeviceHandler{Store: deps.Store, Metrics: deps.Metrics, Logger: deps.Logger, Now: deps.Now}
	v1.GET("/devices/:deviceId/state", deviceHandler.GetState)
	v1.PATCH("/devices/:deviceId/state", deviceHandler.PatchState)
	v1.PUT("/devices/:deviceId/state", deviceHandler.ReplaceState)

	return r
}
