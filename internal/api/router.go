package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/bastion/internal/api/handlers"
	"github.com/nebari-dev/bastion/internal/api/middleware"
	"github.com/nebari-dev/bastion/internal/auth"
	"github.com/nebari-dev/bastion/internal/authz"
	"github.com/nebari-dev/bastion/internal/config"
	"github.com/nebari-dev/bastion/internal/crypto"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/rbac"
	"github.com/nebari-dev/bastion/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Dependencies are the long-lived components the router is built from.
type Dependencies struct {
	DB       *gorm.DB
	Sessions *auth.Sessions
	// External is the optional identity provider; nil disables OIDC login.
	External auth.ExternalProvider
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	// Set Gin mode
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.Server.CORSOrigins))
	}
	router.Use(deps.Sessions.Middleware(cfg.Auth.CookieName))

	// Stores and the decision engine
	users := service.NewUserService(deps.DB, logger)
	roles := service.NewRoleService(deps.DB, logger)
	perms := service.NewPermissionService(deps.DB, logger)
	graph := rbac.NewGraph(deps.DB, logger)
	engine := authz.NewEngine(users, graph, logger)
	authenticator := auth.NewAuthenticator(users, engine, deps.Sessions, logger)

	// The external login flow keeps its state in a sealed cookie
	var states *crypto.Sealer
	if deps.External != nil {
		sealer, err := crypto.NewSealer(cfg.Auth.JWTSecret, "oidc-state")
		if err != nil {
			logger.Error("External login disabled", "error", err)
		} else {
			states = sealer
		}
	}

	// Handlers
	infoHandler := handlers.NewInfoHandler(deps.DB)
	authHandler := handlers.NewAuthHandler(authenticator, engine, deps.External, states, handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		Domain: cfg.Auth.CookieDomain,
	}, cfg.Guard.LandingPath, deps.DB)
	userHandler := handlers.NewUserHandler(users, graph, deps.DB)
	roleHandler := handlers.NewRoleHandler(roles, graph, deps.DB)
	permissionHandler := handlers.NewPermissionHandler(perms, deps.DB)
	auditHandler := handlers.NewAuditHandler(deps.DB)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", infoHandler.HealthCheck)
		public.GET("/info", infoHandler.GetInfo)
		public.GET("/version", handlers.GetVersion)
	}

	// Admin area: every route is checked against its policy, routes without
	// an explicit permission require the area default.
	guard := middleware.NewGuard(engine, middleware.GuardConfig{
		DefaultPermission: cfg.Guard.DefaultPermission,
		LoginPath:         cfg.Guard.LoginPath,
		ExemptPaths:       cfg.Guard.ExemptPaths,
	}, logger)
	admin := guard.NewArea(router.Group(cfg.Guard.AreaPrefix))
	{
		admin.POST("/auth/login", middleware.Anonymous, authHandler.Login)
		admin.POST("/auth/logout", middleware.Anonymous, authHandler.Logout)
		admin.GET("/auth/oidc/login", middleware.Anonymous, authHandler.OIDCLogin)
		admin.GET("/auth/oidc/callback", middleware.Anonymous, authHandler.OIDCCallback)
		admin.GET("/me", middleware.Policy{}, authHandler.Me)

		manageUsers := middleware.Require(models.PermissionManageUsers)
		userRoutes := admin.Group("/users")
		userRoutes.GET("", manageUsers, userHandler.ListUsers)
		userRoutes.POST("", manageUsers, userHandler.CreateUser)
		userRoutes.GET("/deleted", manageUsers, userHandler.ListDeletedUsers)
		userRoutes.GET("/:id", manageUsers, userHandler.GetUser)
		userRoutes.PUT("/:id", manageUsers, userHandler.UpdateUser)
		userRoutes.DELETE("/:id", manageUsers, userHandler.DeleteUser)
		userRoutes.POST("/:id/activate", manageUsers, userHandler.ActivateUser)
		userRoutes.POST("/:id/deactivate", manageUsers, userHandler.DeactivateUser)
		userRoutes.POST("/:id/restore", manageUsers, userHandler.RestoreUser)
		userRoutes.DELETE("/:id/purge", manageUsers, userHandler.PurgeUser)
		userRoutes.GET("/:id/roles", manageUsers, userHandler.ListUserRoles)
		userRoutes.GET("/:id/roles/deleted", manageUsers, userHandler.ListDeletedUserRoles)
		userRoutes.POST("/:id/roles/:roleId", manageUsers, userHandler.AssignRole)
		userRoutes.DELETE("/:id/roles/:roleId", manageUsers, userHandler.UnassignRole)
		userRoutes.POST("/:id/roles/:roleId/restore", manageUsers, userHandler.RestoreUserRole)
		userRoutes.DELETE("/:id/roles/:roleId/purge", manageUsers, userHandler.PurgeUserRole)

		manageRoles := middleware.Require(models.PermissionManageRoles)
		roleRoutes := admin.Group("/roles")
		roleRoutes.GET("", manageRoles, roleHandler.ListRoles)
		roleRoutes.POST("", manageRoles, roleHandler.CreateRole)
		roleRoutes.GET("/deleted", manageRoles, roleHandler.ListDeletedRoles)
		roleRoutes.GET("/:id", manageRoles, roleHandler.GetRole)
		roleRoutes.PUT("/:id", manageRoles, roleHandler.UpdateRole)
		roleRoutes.DELETE("/:id", manageRoles, roleHandler.DeleteRole)
		roleRoutes.POST("/:id/restore", manageRoles, roleHandler.RestoreRole)
		roleRoutes.DELETE("/:id/purge", manageRoles, roleHandler.PurgeRole)
		roleRoutes.GET("/:id/permissions", manageRoles, roleHandler.ListRolePermissions)
		roleRoutes.POST("/:id/permissions/:permissionId", manageRoles, roleHandler.GrantPermission)
		roleRoutes.GET("/:id/permissions/deleted", manageRoles, roleHandler.ListDeletedRolePermissions)
		roleRoutes.DELETE("/:id/permissions/:permissionId", manageRoles, roleHandler.RevokePermission)
		roleRoutes.POST("/:id/permissions/:permissionId/restore", manageRoles, roleHandler.RestoreRolePermission)
		roleRoutes.DELETE("/:id/permissions/:permissionId/purge", manageRoles, roleHandler.PurgeRolePermission)

		managePermissions := middleware.Require(models.PermissionManagePermissions)
		permissionRoutes := admin.Group("/permissions")
		permissionRoutes.GET("", managePermissions, permissionHandler.ListPermissions)
		permissionRoutes.POST("", managePermissions, permissionHandler.CreatePermission)
		permissionRoutes.GET("/deleted", managePermissions, permissionHandler.ListDeletedPermissions)
		permissionRoutes.GET("/:id", managePermissions, permissionHandler.GetPermission)
		permissionRoutes.PUT("/:id", managePermissions, permissionHandler.UpdatePermission)
		permissionRoutes.DELETE("/:id", managePermissions, permissionHandler.DeletePermission)
		permissionRoutes.POST("/:id/restore", managePermissions, permissionHandler.RestorePermission)
		permissionRoutes.DELETE("/:id/purge", managePermissions, permissionHandler.PurgePermission)

		admin.GET("/audit-logs", middleware.Require(models.PermissionViewAuditLog), auditHandler.ListAuditLogs)
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info("API router initialized", "mode", cfg.Server.Mode, "admin_area", cfg.Guard.AreaPrefix)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware allows the configured browser origins to call the API
// with credentials.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
