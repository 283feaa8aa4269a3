package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"auth-template/internal/domain"
	"auth-template/internal/ratelimit"
	"auth-template/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the routes mounted by RegisterRoutes.
type Options struct {
	ProjectName    string
	Version        string
	AllowedOrigins []string
	// AdminSite mounts the /admin routes.
	AdminSite bool
	// StaticDir is served under /static when set.
	StaticDir string
	// RateLimiter throttles requests per client IP when set.
	RateLimiter *ratelimit.ClientLimiter
	DB          Pinger
	Logger      logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth     service.AuthService
	profiles service.ProfileService
	roles    service.RoleService
	opts     Options
	logger   logrus.FieldLogger
}

func NewHandler(auth service.AuthService, profiles service.ProfileService, roles service.RoleService, opts Options) *Handler {
	registerBindingNames()
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		auth:     auth,
		profiles: profiles,
		roles:    roles,
		opts:     opts,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.recovery(), h.accessLog(), corsMiddleware(h.opts.AllowedOrigins))
	if h.opts.RateLimiter != nil {
		router.Use(rateLimit(h.opts.RateLimiter))
	}

	router.GET("/", h.home)
	if h.opts.StaticDir != "" {
		router.Static("/static", h.opts.StaticDir)
	}

	api := router.Group("/api/v1")
	{
		api.GET("/", h.apiHome)
		api.GET("/utils/health", h.health)

		auth := api.Group("/auth")
		auth.POST("/token", h.issueTokens)
		auth.GET("/refresh", h.refresh)
		auth.GET("/logout", h.authenticate, h.logout)

		users := api.Group("/users")
		users.POST("", h.requestOTP)
		users.POST("/:username", h.authenticate, h.createProfile)
		users.PATCH("/:username", h.authenticate, h.updateProfile)
		users.GET("/:username", h.authenticate, h.getProfile)
		users.POST("/:username/image", h.authenticate, h.uploadImage)
	}

	legacy := router.Group("/user")
	{
		legacy.POST("/signup", h.signUp)
		legacy.POST("/login", h.passwordLogin)
		legacy.POST("/forget", h.resetPassword)
	}

	if h.opts.AdminSite {
		admin := router.Group("/admin")
		admin.GET("/", h.home)
		admin.GET("/users", h.authenticate, h.requireRoles(domain.RoleAdmin), h.listUsers)
	}
}

func (h *Handler) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": h.opts.ProjectName + " Backend"})
}

func (h *Handler) apiHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the API",
		"detail":  "This API is built using Gin",
		"version": h.opts.Version,
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.opts.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.DB.PingContext(ctx); err != nil {
			h.logger.Errorf("health check: %v", err)
			abortDetail(c, http.StatusServiceUnavailable, "DB Service Unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
