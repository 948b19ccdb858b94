// Package webui is the web-form front-end: HTML pages with forms plus a JSON
// API over the same catalog operations.
package webui

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"library-catalog/internal/library"
	"library-catalog/web"
)

const requestIDHeader = "X-Request-ID"

// Server handles HTTP requests for the web front-end
type Server struct {
	svc    *library.Service
	logger *zap.Logger
	router *gin.Engine
}

// NewServer creates the web front-end and registers its routes
func NewServer(svc *library.Service, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(web.Content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	s := &Server{svc: svc, logger: logger, router: router}

	router.Use(requestID(), s.accessLog(), gin.CustomRecovery(s.recoverPanic))
	s.registerRoutes()

	return s, nil
}

// Router returns the underlying engine, e.g. to mount extra handlers or to
// serve it from an http.Server
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	// HTML form pages
	s.router.GET("/", s.handleIndex)
	s.router.POST("/books", s.handleAddBookForm)
	s.router.POST("/borrow", s.handleBorrowForm)
	s.router.POST("/return", s.handleReturnForm)
	s.router.GET("/search", s.handleSearchPage)
	s.router.GET("/books/:id", s.handleBookPage)

	// JSON API
	api := s.router.Group("/api")
	{
		api.GET("/books", s.apiListBooks)
		api.POST("/books", s.apiAddBook)
		api.GET("/books/search", s.apiSearchBooks)
		api.GET("/books/:id", s.apiGetBook)
		api.GET("/books/:id/loans", s.apiBookLoans)
		api.POST("/books/:id/borrow", s.apiBorrow)
		api.POST("/books/:id/return", s.apiReturn)
		api.GET("/stats/most-borrowed", s.apiMostBorrowed)
	}
}

// handleHealth reports whether the database is reachable
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		c.String(http.StatusServiceUnavailable, "UNAVAILABLE")
		return
	}
	c.String(http.StatusOK, "OK")
}

// requestID tags every request with an id, reusing the caller's if present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.Error("Recovered from panic in HTTP handler",
		zap.Any("panic", recovered),
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	default:
		return ""
	}
}
