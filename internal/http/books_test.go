package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
)

type bookEnvelope struct {
	Message string        `json:"message"`
	Book    entities.Book `json:"book"`
}

func (s *testServer) createBook(t *testing.T, title, author, genre string) entities.Book {
	t.Helper()
	body := fmt.Sprintf(`{"title":%q,"author":%q,"genre":%q,"year":1965}`, title, author, genre)
	rr := s.do(http.MethodPost, "/api/books", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[bookEnvelope](t, rr).Book
}

func TestBooksAPI_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/books"},
		{http.MethodPost, "/api/books"},
		{http.MethodGet, "/api/books/1"},
		{http.MethodPut, "/api/books/1"},
		{http.MethodPatch, "/api/books/1/borrow"},
		{http.MethodPost, "/api/books/1/borrow"},
		{http.MethodPost, "/api/books/1/return"},
		{http.MethodDelete, "/api/books/1"},
		{http.MethodGet, "/api/books/removed/list"},
		{http.MethodGet, "/api/books/genres/list"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rr := s.do(r.method, r.path, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"Authentication required"}`, rr.Body.String())
		})
	}
}

func TestBooksAPI_Create(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	rr := s.do(http.MethodPost, "/api/books",
		`{"title":" Dune ","author":"Frank Herbert","genre":"SciFi","year":1965,"isbn":"9780441013593"}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := decode[bookEnvelope](t, rr)
	assert.Equal(t, "Book added successfully", resp.Message)
	assert.NotZero(t, resp.Book.ID)
	assert.Equal(t, "Dune", resp.Book.Title)
	assert.False(t, resp.Book.IsBorrowed)
	assert.False(t, resp.Book.Removed)
	assert.Nil(t, resp.Book.BorrowedBy)
}

func TestBooksAPI_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	rr := s.do(http.MethodPost, "/api/books", `{"title":"","author":"Someone","genre":"Poetry","year":1700}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Len(t, resp.Details, 2)
	assert.Contains(t, resp.Error, "Title is required")
}

func TestBooksAPI_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	rr := s.do(http.MethodPost, "/api/books", `{"title":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rr.Body.String())
}

func TestBooksAPI_GetAndNotFound(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	book := s.createBook(t, "Dune", "Frank Herbert", "SciFi")

	rr := s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Dune", decode[entities.Book](t, rr).Title)

	rr = s.do(http.MethodGet, "/api/books/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Book not found"}`, rr.Body.String())

	rr = s.do(http.MethodGet, "/api/books/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBooksAPI_ListFiltersAndPagination(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	for i := range 12 {
		s.createBook(t, fmt.Sprintf("Fiction %02d", i), "Author", "Fiction")
	}
	s.createBook(t, "The Odyssey", "Homer", "Poetry")

	rr := s.do(http.MethodGet, "/api/books?limit=5&page=2&genre=fic", "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[BooksListResponse](t, rr)
	assert.Len(t, page.Books, 5)
	assert.Equal(t, 2, page.Pagination.Current)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)

	rr = s.do(http.MethodGet, "/api/books?search=homer", "")
	page = decode[BooksListResponse](t, rr)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "The Odyssey", page.Books[0].Title)

	rr = s.do(http.MethodGet, "/api/books?search=nothing-matches", "")
	page = decode[BooksListResponse](t, rr)
	assert.NotNil(t, page.Books)
	assert.Empty(t, page.Books)
	assert.Equal(t, 0, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext)
}

func TestBooksAPI_Update(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	book := s.createBook(t, "Dune", "Frank Herbert", "SciFi")

	rr := s.do(http.MethodPut, fmt.Sprintf("/api/books/%d", book.ID),
		`{"title":"Dune Messiah","author":"Frank Herbert","genre":"SciFi","year":1969}`)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[bookEnvelope](t, rr)
	assert.Equal(t, "Book updated successfully", resp.Message)
	assert.Equal(t, "Dune Messiah", resp.Book.Title)
	assert.Equal(t, 1969, resp.Book.Year)
}

func TestBooksAPI_BorrowAndReturn(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	book := s.createBook(t, "Dune", "Frank Herbert", "SciFi")
	path := fmt.Sprintf("/api/books/%d", book.ID)

	rr := s.do(http.MethodPost, path+"/borrow", `{"borrowedBy":"Alice"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[bookEnvelope](t, rr)
	assert.Equal(t, "Book borrowed", resp.Message)
	assert.True(t, resp.Book.IsBorrowed)
	require.NotNil(t, resp.Book.BorrowedBy)
	assert.Equal(t, "Alice", *resp.Book.BorrowedBy)
	assert.NotNil(t, resp.Book.BorrowedDate)

	rr = s.do(http.MethodPost, path+"/borrow", `{"borrowedBy":"Bob"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"book is already borrowed"}`, rr.Body.String())

	rr = s.do(http.MethodPost, path+"/return", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[bookEnvelope](t, rr)
	assert.False(t, resp.Book.IsBorrowed)
	assert.Nil(t, resp.Book.BorrowedBy)
	assert.Nil(t, resp.Book.BorrowedDate)

	rr = s.do(http.MethodPost, path+"/return", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestBooksAPI_BorrowRequiresBorrower(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	book := s.createBook(t, "Dune", "Frank Herbert", "SciFi")

	rr := s.do(http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", book.ID), `{"borrowedBy":"  "}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Borrower name is required")
}

func TestBooksAPI_ToggleBorrow(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	book := s.createBook(t, "Dune", "Frank Herbert", "SciFi")
	path := fmt.Sprintf("/api/books/%d/borrow", book.ID)

	rr := s.do(http.MethodPatch, path, `{"borrowedBy":"Alice"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[bookEnvelope](t, rr)
	assert.Equal(t, "Book status updated", resp.Message)
	assert.True(t, resp.Book.IsBorrowed)

	rr = s.do(http.MethodPatch, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[bookEnvelope](t, rr).Book.IsBorrowed)
}

func TestBooksAPI_RemoveLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	keep := s.createBook(t, "Dune", "Frank Herbert", "SciFi")
	gone := s.createBook(t, "Lost Book", "Someone", "Drama")

	rr := s.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", gone.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", gone.ID), `{"removalReason":"Water damage"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Book removed successfully"}`, rr.Body.String())

	page := decode[BooksListResponse](t, s.do(http.MethodGet, "/api/books", ""))
	require.Len(t, page.Books, 1)
	assert.Equal(t, keep.ID, page.Books[0].ID)

	removed := decode[[]entities.Book](t, s.do(http.MethodGet, "/api/books/removed/list", ""))
	require.Len(t, removed, 1)
	assert.Equal(t, gone.ID, removed[0].ID)
	require.NotNil(t, removed[0].RemovalReason)
	assert.Equal(t, "Water damage", *removed[0].RemovalReason)
	require.NotNil(t, removed[0].RemovedBy)
	assert.Equal(t, "admin@example.com", removed[0].RemovedBy.Email)

	rr = s.do(http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", gone.ID), `{"borrowedBy":"Alice"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(http.MethodDelete, "/api/books/999", `{"removalReason":"Lost"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBooksAPI_Genres(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	s.createBook(t, "B", "Author", "Poetry")
	s.createBook(t, "A", "Author", "Fiction")
	s.createBook(t, "C", "Author", "Fiction")

	rr := s.do(http.MethodGet, "/api/books/genres/list", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["Fiction","Poetry"]`, rr.Body.String())
}
