package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"auth-template/internal/ratelimit"
	"auth-template/internal/service"
	"auth-template/internal/token"
)

const callerKey = "caller"

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		h.logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"stack": string(debug.Stack()),
		}).Errorf("panic: %v", recovered)
		abortDetail(c, http.StatusInternalServerError, "Internal Server Error")
	})
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := h.logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func rateLimit(limiter *ratelimit.ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			abortDetail(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// authenticate resolves the access token into the caller for protected routes.
func (h *Handler) authenticate(c *gin.Context) {
	raw, err := token.Extract(c.Request, token.AccessCookie)
	if err != nil {
		h.unauthorized(c, err)
		return
	}
	caller, err := h.auth.Authorize(c.Request.Context(), raw)
	if err != nil {
		h.unauthorized(c, err)
		return
	}
	c.Set(callerKey, *caller)
	c.Next()
}

func (h *Handler) unauthorized(c *gin.Context, err error) {
	var detail string
	switch {
	case errors.Is(err, token.ErrBadHeader):
		detail = "Invalid Token. Should be a 'Bearer <token>'"
	case errors.Is(err, token.ErrTokenMissing):
		detail = "You are not logged in. Token is Missing"
	case errors.Is(err, token.ErrTokenExpired):
		detail = "Token has expired, login again"
	case errors.Is(err, token.ErrTokenInvalid), errors.Is(err, token.ErrWrongTokenType):
		detail = "Token is invalid"
	case errors.Is(err, service.ErrUserNotFound):
		detail = "User not found"
	case errors.Is(err, service.ErrUserInactive):
		detail = "User no longer exist"
	case errors.Is(err, service.ErrNotLoggedIn):
		detail = "Log in first to access this route"
	default:
		h.fail(c, err)
		return
	}
	abortDetail(c, http.StatusUnauthorized, detail)
}

// requireRoles lets the request through only when the caller holds one of roleIDs.
func (h *Handler) requireRoles(roleIDs ...int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := h.roles.HasRole(c.Request.Context(), callerFrom(c).ID, roleIDs...)
		if err != nil {
			h.fail(c, err)
			return
		}
		if !ok {
			abortDetail(c, http.StatusForbidden, "Operation not permitted")
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) service.Caller {
	caller, _ := c.MustGet(callerKey).(service.Caller)
	return caller
}
