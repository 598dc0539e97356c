package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/types"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// BookInput is the payload for creating a catalog entry.
type BookInput struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	ISBN            string   `json:"isbn"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	TotalCopies     int64    `json:"total_copies,omitempty"`
	AvailableCopies *int64   `json:"available_copies,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	Pages           []string `json:"pages,omitempty"`
}

// BookUpdateInput is the payload for a partial catalog update.
type BookUpdateInput struct {
	Title           *string  `json:"title,omitempty"`
	Author          *string  `json:"author,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Category        *string  `json:"category,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	TotalCopies     *int64   `json:"total_copies,omitempty"`
	AvailableCopies *int64   `json:"available_copies,omitempty"`
	CoverURL        *string  `json:"cover_url,omitempty"`
	Pages           []string `json:"pages,omitempty"`
}

// BookPages is the page content of a book for the reading view.
type BookPages struct {
	BookID     uint64   `json:"book_id"`
	BookTitle  string   `json:"book_title"`
	TotalPages int      `json:"total_pages"`
	Pages      []string `json:"pages"`
	IsPreview  bool     `json:"is_preview"`
	HasLoan    bool     `json:"has_loan"`
}

// CreateBook adds a book to the catalog. ISBN must pass its checksum and be
// unique; available copies default to total and may not exceed it.
func CreateBook(db *gorm.DB, input BookInput) (*models.Book, error) {
	if input.Title == "" || input.Author == "" {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Title and author are required", "books.validation.input")
	}
	if !utils.ValidateISBN(input.ISBN) {
		return nil, types.NewError(fiber.StatusBadRequest,
			"ISBN failed checksum validation", "books.validation.isbn")
	}

	total := input.TotalCopies
	if total <= 0 {
		total = 1
	}
	available := total
	if input.AvailableCopies != nil {
		available = *input.AvailableCopies
	}
	if available < 0 || available > total {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Available copies must be between 0 and total copies", "books.validation.copies")
	}

	isbn := utils.NormalizeISBN(input.ISBN)

	var count int64
	if err := db.Model(&models.Book{}).Where("isbn = ?", isbn).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"A book with this ISBN already exists", "books.duplicate_isbn")
	}

	book := &models.Book{
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            isbn,
		Description:     input.Description,
		Category:        input.Category,
		PublicationYear: input.PublicationYear,
		TotalCopies:     total,
		AvailableCopies: available,
		CoverURL:        input.CoverURL,
	}
	if len(input.Pages) > 0 {
		pages, err := json.Marshal(input.Pages)
		if err != nil {
			return nil, err
		}
		book.Pages = datatypes.JSON(pages)
	}

	if err := db.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook applies a partial update, re-checking the copies invariant
// against the row's current state under lock.
func UpdateBook(db *gorm.DB, bookID uint64, input BookUpdateInput) (*models.Book, error) {
	var updated *models.Book

	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var book models.Book
			if err := lockForUpdate(tx).First(&book, bookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Book not found", "books.not_found")
				}
				return err
			}

			fields := map[string]interface{}{}
			if input.Title != nil {
				fields["title"] = *input.Title
			}
			if input.Author != nil {
				fields["author"] = *input.Author
			}
			if input.Description != nil {
				fields["description"] = *input.Description
			}
			if input.Category != nil {
				fields["category"] = *input.Category
			}
			if input.PublicationYear != nil {
				fields["publication_year"] = *input.PublicationYear
			}
			if input.CoverURL != nil {
				fields["cover_url"] = *input.CoverURL
			}
			if len(input.Pages) > 0 {
				pages, err := json.Marshal(input.Pages)
				if err != nil {
					return err
				}
				fields["pages"] = datatypes.JSON(pages)
			}

			total := book.TotalCopies
			if input.TotalCopies != nil {
				total = *input.TotalCopies
				if total < 1 {
					return types.NewError(fiber.StatusBadRequest,
						"Total copies must be at least 1", "books.validation.copies")
				}
				fields["total_copies"] = total
			}
			available := book.AvailableCopies
			if input.AvailableCopies != nil {
				available = *input.AvailableCopies
				fields["available_copies"] = available
			}
			if available < 0 || available > total {
				return types.NewError(fiber.StatusBadRequest,
					"Available copies must be between 0 and total copies", "books.validation.copies")
			}

			if len(fields) == 0 {
				updated = &book
				return nil
			}

			if err := tx.Model(&book).Updates(fields).Error; err != nil {
				return err
			}
			updated = &book
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a catalog entry; loans and reviews cascade.
func DeleteBook(db *gorm.DB, bookID uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewError(fiber.StatusNotFound, "Book not found", "books.not_found")
			}
			return err
		}

		// Not every dialect enforces the FK cascade the same way under
		// AutoMigrate, so clear dependents explicitly.
		if err := tx.Where("book_id = ?", bookID).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
}

// GetBook loads one catalog entry.
func GetBook(db *gorm.DB, bookID uint64) (*models.Book, error) {
	var book models.Book
	if err := db.First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(fiber.StatusNotFound,
				fmt.Sprintf("Book with ID %d not found", bookID), "books.not_found")
		}
		return nil, err
	}
	return &book, nil
}

// ListBooks returns a page of the catalog ordered by title, optionally
// filtered by category.
func ListBooks(db *gorm.DB, skip, limit int, category string) ([]models.Book, error) {
	query := db.Model(&models.Book{}).Order("title")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var books []models.Book
	if err := query.Limit(limit).Offset(skip).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// SearchBooks matches the term against title and author.
func SearchBooks(db *gorm.DB, term string, limit int) ([]models.Book, error) {
	pattern := "%" + term + "%"
	query := db.Model(&models.Book{})
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_books_title"))
	}

	var books []models.Book
	err := query.
		Where("title LIKE ? OR author LIKE ?", pattern, pattern).
		Order("title").
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// RecommendedBooks returns the highest-rated books that have reviews.
func RecommendedBooks(db *gorm.DB, limit int) ([]models.Book, error) {
	var books []models.Book
	err := db.Model(&models.Book{}).
		Where("total_reviews > 0").
		Order("average_rating DESC, total_reviews DESC").
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// GetBookPages returns a book's page content. Preview mode truncates to
// previewCount pages; full mode requires hasLoan (enforced by the caller).
func GetBookPages(db *gorm.DB, bookID uint64, preview bool, previewCount int, hasLoan bool) (*BookPages, error) {
	book, err := GetBook(db, bookID)
	if err != nil {
		return nil, err
	}

	var pages []string
	if len(book.Pages) > 0 {
		if err := json.Unmarshal(book.Pages, &pages); err != nil {
			return nil, fmt.Errorf("corrupt page content for book %d: %w", bookID, err)
		}
	}

	totalPages := len(pages)
	if preview && len(pages) > previewCount {
		pages = pages[:previewCount]
	}

	return &BookPages{
		BookID:     book.ID,
		BookTitle:  book.Title,
		TotalPages: totalPages,
		Pages:      pages,
		IsPreview:  preview,
		HasLoan:    hasLoan,
	}, nil
}

// UserHasActiveLoan reports whether the user currently holds the book.
func UserHasActiveLoan(db *gorm.DB, userID, bookID uint64) (bool, error) {
	var count int64
	err := db.Model(&models.Loan{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID,
			[]string{models.LoanStatusActive, models.LoanStatusOverdue}).
		Count(&count).Error
	return count > 0, err
}
