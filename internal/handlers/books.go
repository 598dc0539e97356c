package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/gorm"
)

// BookHandler handles catalog routes
type BookHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// List handles GET /api/books
// @Summary List the catalog
// @Tags Books
// @Produce json
// @Param skip query int false "Records to skip"
// @Param limit query int false "Page size (max 100)"
// @Param category query string false "Filter by category"
// @Success 200 {array} models.Book
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	skip, limit := pagination(c, 100, 100)
	category := c.Query("category", "")

	books, err := services.ListBooks(h.DB, skip, limit, category)
	if err != nil {
		return respondError(c, err, "listBooks")
	}
	return utils.DataResponse(c, books, fiber.StatusOK)
}

// Search handles GET /api/books/search
// @Summary Search books by title or author
// @Tags Books
// @Produce json
// @Param q query string true "Search term"
// @Param limit query int false "Max results (max 100)"
// @Success 200 {array} models.Book
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /books/search [get]
func (h *BookHandler) Search(c *fiber.Ctx) error {
	term := c.Query("q", "")
	if term == "" {
		return utils.ErrorResponse(c, "Query parameter 'q' is required", fiber.StatusBadRequest, "books.validation.search")
	}
	_, limit := pagination(c, 20, 100)

	books, err := services.SearchBooks(h.DB, term, limit)
	if err != nil {
		return respondError(c, err, "searchBooks")
	}
	return utils.DataResponse(c, books, fiber.StatusOK)
}

// Recommended handles GET /api/books/recommended
// @Summary List the highest-rated books
// @Tags Books
// @Produce json
// @Param limit query int false "Max results (max 20)"
// @Success 200 {array} models.Book
// @Router /books/recommended [get]
func (h *BookHandler) Recommended(c *fiber.Ctx) error {
	_, limit := pagination(c, 5, 20)

	books, err := services.RecommendedBooks(h.DB, limit)
	if err != nil {
		return respondError(c, err, "recommendedBooks")
	}
	return utils.DataResponse(c, books, fiber.StatusOK)
}

// GetByID handles GET /api/books/:id
// @Summary Get one book
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} models.Book
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id} [get]
func (h *BookHandler) GetByID(c *fiber.Ctx) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "getBook")
	}

	book, err := services.GetBook(h.DB, bookID)
	if err != nil {
		return respondError(c, err, "getBook")
	}
	return utils.DataResponse(c, book, fiber.StatusOK)
}

// Preview handles GET /api/books/:id/preview
// @Summary Get a book's preview pages
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} services.BookPages
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id}/preview [get]
func (h *BookHandler) Preview(c *fiber.Ctx) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "previewBook")
	}

	pages, err := services.GetBookPages(h.DB, bookID, true, h.Cfg.PreviewPageCount, false)
	if err != nil {
		return respondError(c, err, "previewBook")
	}
	return utils.DataResponse(c, pages, fiber.StatusOK)
}

// Read handles GET /api/books/:id/read
// @Summary Read a book's full pages
// @Description Requires an active loan on the book; admins are exempt.
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} services.BookPages
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id}/read [get]
func (h *BookHandler) Read(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "readBook")
	}
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "readBook")
	}

	hasLoan, err := services.UserHasActiveLoan(h.DB, caller.ID, bookID)
	if err != nil {
		return respondError(c, err, "readBook")
	}
	if !hasLoan && caller.Role != models.RoleAdmin {
		return utils.ErrorResponse(c, "Borrow this book to read it", fiber.StatusForbidden, "auth.forbidden")
	}

	pages, err := services.GetBookPages(h.DB, bookID, false, 0, hasLoan)
	if err != nil {
		return respondError(c, err, "readBook")
	}
	return utils.DataResponse(c, pages, fiber.StatusOK)
}

// Create handles POST /api/books
// @Summary Add a book to the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookInput true "Book details"
// @Success 201 {object} models.Book
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var input services.BookInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "books.validation.input")
	}

	book, err := services.CreateBook(h.DB, input)
	if err != nil {
		return respondError(c, err, "createBook")
	}
	return utils.DataResponse(c, book, fiber.StatusCreated)
}

// Update handles PUT /api/books/:id
// @Summary Update catalog details
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.BookUpdateInput true "Fields to update"
// @Success 200 {object} models.Book
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "updateBook")
	}

	var input services.BookUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "books.validation.input")
	}

	book, err := services.UpdateBook(h.DB, bookID, input)
	if err != nil {
		return respondError(c, err, "updateBook")
	}
	return utils.DataResponse(c, book, fiber.StatusOK)
}

// Delete handles DELETE /api/books/:id
// @Summary Remove a book and its loans/reviews
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "deleteBook")
	}

	if err := services.DeleteBook(h.DB, bookID); err != nil {
		return respondError(c, err, "deleteBook")
	}
	return utils.MessageResponse(c, fiber.StatusOK, "Book deleted", "")
}

// Reviews handles GET /api/books/:id/reviews
// @Summary List a book's reviews
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {array} services.ReviewDetail
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /books/{id}/reviews [get]
func (h *BookHandler) Reviews(c *fiber.Ctx) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "bookReviews")
	}

	if _, err := services.GetBook(h.DB, bookID); err != nil {
		return respondError(c, err, "bookReviews")
	}

	reviews, err := services.ListBookReviews(h.DB, bookID)
	if err != nil {
		return respondError(c, err, "bookReviews")
	}
	return utils.DataResponse(c, reviews, fiber.StatusOK)
}
