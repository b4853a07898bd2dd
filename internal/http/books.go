package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

type borrowRequest struct {
	BorrowedBy string `json:"borrowedBy"`
}

type removeRequest struct {
	RemovalReason string `json:"removalReason"`
}

// BooksListResponse is one page of the catalogue.
type BooksListResponse struct {
	Books      []entities.Book  `json:"books"`
	Pagination library.PageInfo `json:"pagination"`
}

// BooksController serves /api/books. Every route expects auth.Middleware.RequireAuth upstream.
type BooksController struct {
	books *library.BookService
}

func NewBooksController(books *library.BookService) *BooksController {
	return &BooksController{books: books}
}

// RegisterRoutes registers the book routes on an authenticated group.
func (bc *BooksController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", bc.List)
	group.POST("", bc.Create)
	group.GET("/removed/list", bc.ListRemoved)
	group.GET("/genres/list", bc.Genres)
	group.GET("/:id", bc.Get)
	group.PUT("/:id", bc.Update)
	group.PATCH("/:id/borrow", bc.ToggleBorrow)
	group.POST("/:id/borrow", bc.Borrow)
	group.POST("/:id/return", bc.Return)
	group.DELETE("/:id", bc.Remove)
}

func (bc *BooksController) List(c *gin.Context) {
	q := library.ParseBookQuery(c.Request.URL.Query())

	books, page, err := bc.books.List(c.Request.Context(), auth.PrincipalFrom(c), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BooksListResponse{Books: books, Pagination: page})
}

func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := bc.books.Get(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (bc *BooksController) Create(c *gin.Context) {
	var fields entities.BookFields
	if !bindJSON(c, &fields) {
		return
	}

	book, err := bc.books.Create(c.Request.Context(), auth.PrincipalFrom(c), fields)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Book added successfully", Book: book})
}

func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}
	var fields entities.BookFields
	if !bindJSON(c, &fields) {
		return
	}

	book, err := bc.books.Update(c.Request.Context(), auth.PrincipalFrom(c), id, fields)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Book updated successfully", Book: book})
}

// ToggleBorrow flips the borrow state. The body is optional when returning a book.
func (bc *BooksController) ToggleBorrow(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}
	var req borrowRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.ToggleBorrow(c.Request.Context(), auth.PrincipalFrom(c), id, req.BorrowedBy)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Book status updated", Book: book})
}

func (bc *BooksController) Borrow(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}
	var req borrowRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.Borrow(c.Request.Context(), auth.PrincipalFrom(c), id, req.BorrowedBy)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Book borrowed", Book: book})
}

func (bc *BooksController) Return(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := bc.books.Return(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Book returned", Book: book})
}

func (bc *BooksController) Remove(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}
	var req removeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := bc.books.Remove(c.Request.Context(), auth.PrincipalFrom(c), id, req.RemovalReason); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Book removed successfully"})
}

func (bc *BooksController) ListRemoved(c *gin.Context) {
	books, err := bc.books.ListRemoved(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (bc *BooksController) Genres(c *gin.Context) {
	genres, err := bc.books.Genres(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}
