package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/handler"
	"github.com/stemsi/testdesk/internal/middleware"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/service"
	"github.com/stemsi/testdesk/internal/view"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Dashboard *handler.DashboardHandler
	Lookup    *handler.LookupHandler
	TestAPI   *handler.TestAPIHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by middleware (rate limiter sweeps).
func SetupRouter(
	ctx context.Context,
	sessions *service.SessionService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(view.MustTemplates())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	// Browsers ask for this on every page; it must not reach /:chat_id.
	router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Writes go to the remote API; throttle them per client and chat id.
	limiter := middleware.NewRateLimiter(ctx, cfg.MutationRatePerMinute, time.Minute)

	// ─── 1. JSON API ───────────────────────────────────────────────────
	api := router.Group("/api/v1/:chat_id")
	api.Use(middleware.NoStore())
	{
		api.POST("/session", limiter.Middleware(response.AbortFail), handlers.TestAPI.CreateSession)

		tests := api.Group("/tests")
		tests.Use(
			middleware.RequireSession(sessions, response.AbortFail),
			middleware.RequireAdmin(response.AbortFail),
		)
		{
			tests.GET("", handlers.TestAPI.ListTests)
			tests.GET("/:id", handlers.TestAPI.GetTest)
			tests.GET("/:id/lookup", handlers.TestAPI.LookupTest)

			writes := tests.Group("")
			writes.Use(limiter.Middleware(response.AbortFail))
			{
				writes.POST("", handlers.TestAPI.CreateTest)
				writes.PUT("/:id", handlers.TestAPI.UpdateTest)
				writes.PATCH("/:id/active", handlers.TestAPI.SetActive)
				writes.DELETE("/:id", handlers.TestAPI.DeleteTest)
			}
		}
	}

	// ─── 2. WebSocket (session via ?token= or cookie) ──────────────────
	ws := router.Group("/ws/v1/:chat_id")
	ws.Use(
		middleware.RequireSession(sessions, response.AbortFail),
		middleware.RequireAdmin(response.AbortFail),
	)
	{
		ws.GET("/stream", handlers.WS.TestStream)
	}

	// ─── 3. Dashboard pages ────────────────────────────────────────────
	router.GET("/", handlers.Dashboard.Index)

	pages := router.Group("/:chat_id")
	pages.Use(middleware.NoStore())
	{
		// Public: resolving the admin here is what issues the session.
		pages.GET("", handlers.Dashboard.Show)
		pages.GET("/page/:page", handlers.Dashboard.ShowPage)
		pages.GET("/user", handlers.Lookup.Lookup)

		tests := pages.Group("/tests")
		tests.Use(
			middleware.RequireSession(sessions, handler.HTMLFail),
			middleware.RequireAdmin(handler.HTMLFail),
		)
		{
			tests.GET("/new", handlers.Dashboard.NewTestForm)
			tests.GET("/:id/edit", handlers.Dashboard.EditTestForm)
			tests.GET("/:id/delete", handlers.Dashboard.ConfirmDelete)

			writes := tests.Group("")
			writes.Use(limiter.Middleware(handler.HTMLFail))
			{
				writes.POST("/new", handlers.Dashboard.CreateTest)
				writes.POST("/:id/edit", handlers.Dashboard.UpdateTest)
				writes.POST("/:id/toggle", handlers.Dashboard.ToggleTest)
				writes.POST("/:id/delete", handlers.Dashboard.DeleteTest)
			}
		}
	}

	return router
}
