package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"taskmanager/backend/internal/api"
	"taskmanager/backend/pkg/config"
	"taskmanager/backend/pkg/di"
	"taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/health"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/pkg/middleware"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
	Health    *health.Checker
}

// New creates a new router around the container's dependencies.
func New(container *di.Container, checker *health.Checker) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger first so every request is captured, then error translation and
	// recovery, then rate limiting.
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rlOpts := middleware.DefaultRateLimiterOptions()
	rlOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	rlOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, rlOpts)
	engine.Use(rateLimiter.Middleware())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		Health:    checker,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	jwtAuth := middleware.JWTAuth(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService)
	userHandler := api.NewUserHandler(r.Container.UserService)
	chatHandler := api.NewChatHandler(r.Container.ChatService)
	taskHandler := api.NewTaskHandler(r.Container.TaskService)
	categoryHandler := api.NewCategoryHandler(r.Container.CategoryService)

	r.Engine.GET("/health", gin.WrapF(r.Health.HTTPHandler()))

	apiRoutes := r.Engine.Group("/api")

	authRoutes := apiRoutes.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	protected := apiRoutes.Group("/")
	protected.Use(jwtAuth)
	{
		protected.GET("/users/search", userHandler.Search)

		chatRoutes := protected.Group("/chat")
		{
			chatRoutes.GET("/conversations", chatHandler.ListConversations)
			chatRoutes.POST("/conversations/private", chatHandler.OpenPrivate)
			chatRoutes.GET("/conversations/:id/messages", chatHandler.Messages)
		}

		taskRoutes := protected.Group("/tasks")
		{
			taskRoutes.GET("", taskHandler.List)
			taskRoutes.POST("", taskHandler.Create)
			taskRoutes.GET("/:id", taskHandler.Get)
			taskRoutes.PUT("/:id", taskHandler.Update)
			taskRoutes.DELETE("/:id", taskHandler.Delete)
		}

		categoryRoutes := protected.Group("/categories")
		{
			categoryRoutes.GET("", categoryHandler.List)
			categoryRoutes.POST("", categoryHandler.Create)
			categoryRoutes.PUT("/:id", categoryHandler.Update)
			categoryRoutes.DELETE("/:id", categoryHandler.Delete)
		}
	}

	// WebSocket route; handshake auth happens inside the handler, so no
	// jwtAuth middleware here.
	r.Engine.GET("/ws", r.Container.WSHandler.Serve)
}

// corsMiddleware allows the configured origins, including the headers a
// websocket upgrade needs.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
