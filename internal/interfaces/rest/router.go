package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/internal/interfaces/middleware"
	"go.uber.org/zap"
)

// RouterOptions configure the inspector API
type RouterOptions struct {
	// Store guards /api/schema when set
	Store         security.Store
	Authenticator Authenticator
	LoginURL      string
}

// NewRouter builds the inspector API
func NewRouter(logger *zap.Logger, schema *services.SchemaHandler, queries *services.QueryBuilder, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"unit":   schema.Unit().Name,
			"tables": len(schema.Tables()),
		})
	})

	api := router.Group("/api")

	if opts.Store != nil && opts.Authenticator != nil {
		authHandler := NewAuthHandler(logger, opts.Store, opts.Authenticator)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
	}

	schemaHandler := NewSchemaHandler(logger, schema, queries)
	tables := api.Group("/schema/tables")
	if opts.Store != nil {
		tables.Use(middleware.RequireSecurityContext(opts.Store, opts.LoginURL))
	}
	tables.GET("", schemaHandler.ListTables)
	tables.GET("/:name", schemaHandler.GetTable)
	tables.GET("/:name/query", schemaHandler.GetQuery)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
