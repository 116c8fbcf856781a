package v1

import (
	"net/http"
	"strings"
	"time"

	"internify-backend/config"
	"internify-backend/internal/delivery/http/middleware"
	"internify-backend/internal/delivery/http/response"
	"internify-backend/internal/domain"
	"internify-backend/internal/usecase"
	"internify-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC        domain.AuthUsecase
	CVUC          domain.CVUsecase
	HealthUC      usecase.HealthUsecase
	UploadLimiter *security.UploadLimiter // optional
	Redis         *goredis.Client         // nil falls back to in-memory rate limiting
	Metrics       http.Handler            // optional
	Config        *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	cfg := deps.Config
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimitConfig(deps.Redis, cfg.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		status, ok := deps.HealthUC.Check(c.Request.Context())
		if !ok {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := v1.Group("")
	public.Use(middleware.RateLimitMiddleware(middleware.AuthRateLimitConfig(deps.Redis, cfg.RateLimitLoginThreshold, window)))
	public.Use(middleware.SecurityHeadersMiddleware())

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.SecurityHeadersMiddleware())
	protected.Use(middleware.RequireToken())
	{
		NewAuthHandler(public, protected, deps.AuthUC, deps.CVUC, deps.UploadLimiter, cfg.SessionTTL, strings.HasPrefix(cfg.FrontendURL, "https://"))
	}

	return r
}
