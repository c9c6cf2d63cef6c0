package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Muragesh-24/ENGIGROW/internal/auth"
	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/observability"
)

const currentUserKey = "currentUser"

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// IdentityResolver looks up the user a token names.
type IdentityResolver interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// AccessGate resolves the bearer token to a stored user and attaches it to the
// request. Any failure aborts the request before the handler runs.
func AccessGate(tokens TokenService, users IdentityResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, tokens, users)
		if err != nil {
			observability.AuthFailures.WithLabelValues(authFailureReason(err)).Inc()
			writeError(c, logger, err)
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens TokenService, users IdentityResolver) (*domain.User, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return nil, domain.ErrMissingToken
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return nil, domain.ErrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByEmail(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing"
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrIdentityNotFound):
		return "identity_not_found"
	default:
		return "error"
	}
}

// currentUser returns the user attached by AccessGate.
func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":    c.Request.Method,
			"route":     routeLabel(c),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if user := currentUser(c); user != nil {
			fields["user"] = user.Email
		}
		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeLabel(c)
		observability.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// routeLabel keeps metric cardinality bounded by using the route template.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
