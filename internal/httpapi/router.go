// Package httpapi exposes the persona service as a JSON REST API.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/persona-service/internal/logging"
	"gitlab.com/dirk.krummacker/persona-service/internal/metrics"
	"gitlab.com/dirk.krummacker/persona-service/internal/model"
	"go.uber.org/zap"
)

// PersonaService is the set of operations the REST API relies on.
type PersonaService interface {
	ListAll(ctx context.Context) ([]model.Persona, error)
	GetByID(ctx context.Context, id int64) (model.Persona, error)
	Create(ctx context.Context, persona model.Persona) (model.Persona, error)
	Update(ctx context.Context, id int64, persona model.Persona) (model.Persona, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Filter(ctx context.Context, criteria model.Criteria) ([]model.Persona, error)
	Ping(ctx context.Context) error
}

// Options configure the router.
type Options struct {
	// APIToken is the secret every request to /personas must present.
	APIToken string
	// CORSOrigins lists the allowed origins. "*" or an empty list allows any origin.
	CORSOrigins []string
	// RequestLogging writes one log line per request.
	RequestLogging bool
	Logger         *zap.Logger
	// Metrics, if set, are collected and served on /metrics.
	Metrics *metrics.Metrics
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func SetupHttpRouter(svc PersonaService, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIToken == "" {
		logger.Warn("no API token configured, all requests to /personas will be rejected")
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic while handling request", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure("Error interno del servidor", nil))
	}))
	router.Use(requestID())
	if opts.RequestLogging {
		router.Use(logging.RequestLogger(logger))
	}
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	router.Use(corsMiddleware(opts.CORSOrigins))

	h := &handlers{svc: svc, logger: logger}
	router.GET("/health", h.health)

	personas := router.Group("/personas", TokenGate(opts.APIToken, logger))
	personas.GET("", h.findAll)
	personas.GET("/buscar", h.filter)
	personas.POST("", h.create)
	personas.GET("/:id", h.findByID)
	personas.PUT("/:id", h.update)
	personas.DELETE("/:id", h.delete)
	return router
}

// requestID propagates the X-Request-ID header, or generates one, so that log lines of a request
// can be correlated.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Location", "X-Request-ID"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
