package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/auth"
	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/notify"
	"github.com/vovakirdan/docflow-server/internal/service/categories"
	"github.com/vovakirdan/docflow-server/internal/service/documents"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Hub        *core.Hub
	Auth       *auth.Service
	Store      store.Store
	Documents  *documents.Service
	Categories *categories.Service
	Emitter    *notify.Emitter
}

// NewServer builds an HTTP server with REST API and WebSocket routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires every route onto a gin engine.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	logger = log.OrNop(logger)
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	// Leave headroom for multipart framing around the largest accepted file.
	router.MaxMultipartMemory = cfg.Upload.MaxBytes + 1<<20

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Hub, deps.Auth, cfg.Realtime, logger)))

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	docHandlers := NewDocumentHandlers(deps.Documents, logger)
	catHandlers := NewCategoryHandlers(deps.Categories, logger)
	noteHandlers := NewNotificationHandlers(deps.Emitter, logger)
	adminHandlers := NewAdminHandlers(deps.Store, deps.Hub, logger)

	api := router.Group("/api")
	api.GET("/health", healthHandler)
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", apiHandlers.Register)
		authGroup.POST("/login", apiHandlers.Login)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth, logger))
	{
		protected.POST("/documents/upload", docHandlers.Upload)
		protected.GET("/documents", docHandlers.List)
		protected.GET("/documents/:id", docHandlers.Get)
		protected.GET("/documents/:id/download", docHandlers.Download)
		protected.PUT("/documents/:id", docHandlers.Update)
		protected.DELETE("/documents/:id", docHandlers.Delete)

		protected.GET("/categories", catHandlers.List)

		protected.GET("/notifications", noteHandlers.List)
		protected.PUT("/notifications/:id/read", noteHandlers.MarkRead)
	}

	admin := protected.Group("")
	admin.Use(AdminOnly(logger))
	{
		admin.POST("/categories", catHandlers.Create)
		admin.GET("/users", adminHandlers.Users)
		admin.GET("/active-users", adminHandlers.ActiveUsers)
		admin.GET("/dashboard/stats", adminHandlers.Stats)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
