package webui

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"library-catalog/internal/models"
)

const invalidBookID = "Book ID must be a positive whole number."

// pageData is the view model shared by the HTML templates
type pageData struct {
	Title   string
	Message string
	IsError bool

	Books       []models.Book
	Unavailable bool

	Searched bool
	Query    string
	Results  []models.Book

	Book  *models.Book
	Loans []models.Loan
}

// renderIndex renders the catalog page with the outcome of the last action
func (s *Server) renderIndex(c *gin.Context, status int, data pageData) {
	data.Title = "All Books"

	books, err := s.svc.ListBooks(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list books", zap.Error(err))
		data.Unavailable = true
		if data.Message == "" {
			data.Message = messageFor(err, "")
			data.IsError = true
		}
		if status < http.StatusBadRequest {
			status = statusFor(err)
		}
	}
	data.Books = books

	c.HTML(status, "index.html", data)
}

func (s *Server) renderError(c *gin.Context, err error, invalid string, data pageData) {
	if status := statusFor(err); status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.Error(err),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
	data.Message = messageFor(err, invalid)
	data.IsError = true
	s.renderIndex(c, statusFor(err), data)
}

func (s *Server) handleIndex(c *gin.Context) {
	s.renderIndex(c, http.StatusOK, pageData{})
}

func (s *Server) handleAddBookForm(c *gin.Context) {
	title := c.PostForm("title")
	author := c.PostForm("author")

	id, err := s.svc.AddBook(c.Request.Context(), title, author)
	if err != nil {
		s.renderError(c, err, "Title and Author cannot be empty.", pageData{})
		return
	}

	s.renderIndex(c, http.StatusCreated, pageData{
		Message: fmt.Sprintf("Book added successfully! (ID %d)", id),
	})
}

func (s *Server) handleBorrowForm(c *gin.Context) {
	id, err := parseBookID(c.PostForm("book_id"))
	if err == nil {
		_, err = s.svc.Borrow(c.Request.Context(), id)
	}
	if err != nil {
		s.renderError(c, err, invalidBookID, pageData{})
		return
	}

	s.renderIndex(c, http.StatusOK, pageData{Message: "Book borrowed successfully!"})
}

func (s *Server) handleReturnForm(c *gin.Context) {
	id, err := parseBookID(c.PostForm("book_id"))
	if err == nil {
		_, err = s.svc.Return(c.Request.Context(), id)
	}
	if err != nil {
		s.renderError(c, err, invalidBookID, pageData{})
		return
	}

	s.renderIndex(c, http.StatusOK, pageData{Message: "Book returned successfully!"})
}

func (s *Server) handleSearchPage(c *gin.Context) {
	query := c.Query("q")

	results, err := s.svc.SearchBooks(c.Request.Context(), query)
	if err != nil {
		s.renderError(c, err, "Search term cannot be empty.", pageData{Query: query})
		return
	}

	s.renderIndex(c, http.StatusOK, pageData{
		Searched: true,
		Query:    query,
		Results:  results,
	})
}

func (s *Server) handleBookPage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := parseBookID(c.Param("id"))
	var book models.Book
	if err == nil {
		book, err = s.svc.GetBook(ctx, id)
	}
	var loans []models.Loan
	if err == nil {
		loans, err = s.svc.BookLoans(ctx, id)
	}
	if err != nil {
		s.renderError(c, err, invalidBookID, pageData{})
		return
	}

	c.HTML(http.StatusOK, "book.html", pageData{
		Title: book.Title,
		Book:  &book,
		Loans: loans,
	})
}
