package webui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateBookRequest represents the request body for adding a book
type CreateBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (s *Server) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed",
			zap.Error(err),
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.Request.URL.Path),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) apiListBooks(c *gin.Context) {
	books, err := s.svc.ListBooks(c.Request.Context())
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) apiAddBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := s.svc.AddBook(c.Request.Context(), req.Title, req.Author)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) apiSearchBooks(c *gin.Context) {
	books, err := s.svc.SearchBooks(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) apiGetBook(c *gin.Context) {
	id, err := parseBookID(c.Param("id"))
	if err != nil {
		s.apiError(c, err)
		return
	}

	book, err := s.svc.GetBook(c.Request.Context(), id)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) apiBookLoans(c *gin.Context) {
	id, err := parseBookID(c.Param("id"))
	if err != nil {
		s.apiError(c, err)
		return
	}

	loans, err := s.svc.BookLoans(c.Request.Context(), id)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (s *Server) apiBorrow(c *gin.Context) {
	id, err := parseBookID(c.Param("id"))
	if err != nil {
		s.apiError(c, err)
		return
	}

	loan, err := s.svc.Borrow(c.Request.Context(), id)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (s *Server) apiReturn(c *gin.Context) {
	id, err := parseBookID(c.Param("id"))
	if err != nil {
		s.apiError(c, err)
		return
	}

	loan, err := s.svc.Return(c.Request.Context(), id)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (s *Server) apiMostBorrowed(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	stats, err := s.svc.MostBorrowed(c.Request.Context(), limit)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
