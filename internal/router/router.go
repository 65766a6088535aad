package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/tracekit/harbox-api/internal/handler"
	"github.com/tracekit/harbox-api/internal/middleware"
	"github.com/tracekit/harbox-api/internal/models"
	"github.com/tracekit/harbox-api/internal/service"
	"github.com/tracekit/harbox-api/pkg/config"
	"github.com/tracekit/harbox-api/pkg/logger"
	corsmiddleware "github.com/tracekit/harbox-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tracekit/harbox-api/pkg/middleware/requestid"
)

// Deps bundles everything the router needs to wire routes.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Tokens  *service.TokenService
	Metrics *service.MetricsService
	Auth    *handler.AuthHandler
	Files   *handler.FileHandler
	Admin   *handler.AdminHandler
}

// New builds the gin engine with the full middleware chain and all routes.
func New(d Deps) *gin.Engine {
	if d.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if d.DB != nil {
			start := time.Now()
			if err := d.DB.PingContext(c.Request.Context()); err != nil {
				d.Logger.Warn("readiness database ping failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
			d.Metrics.ObserveDBQuery("ping", time.Since(start))
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.Auth(d.Tokens, d.Config.Auth.AccessCookieName)

	api := r.Group(d.Config.APIPrefix)

	users := api.Group("/users")
	{
		users.POST("/register", d.Auth.Register)
		users.POST("/login", d.Auth.Login)
		users.POST("/refresh", d.Auth.Refresh)
		users.POST("/logout", authRequired, d.Auth.Logout)
		users.GET("/me", authRequired, d.Auth.Me)
	}

	files := api.Group("/files")
	{
		files.GET("", d.Files.Welcome)
		files.POST("", authRequired, d.Files.Upload)
		files.DELETE("", authRequired, d.Files.Delete)
		files.GET("/active", authRequired, d.Files.Active)
		files.GET("/deleted", authRequired, d.Files.Deleted)
	}

	admin := api.Group("/admin", authRequired, middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", d.Admin.ListUsers)
		admin.GET("/users/export", d.Admin.ExportUsers)
	}

	return r
}
