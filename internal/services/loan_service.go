package services

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/types"
	"gorm.io/gorm"
)

// LoanPolicy captures the lending rules applied when a loan is requested.
type LoanPolicy struct {
	Period           time.Duration
	MaxActivePerUser int64
}

// DefaultLoanPolicy lends for 14 days, at most 3 books out per user.
func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{Period: 14 * 24 * time.Hour, MaxActivePerUser: 3}
}

// LoanDetail is a loan joined with book and borrower display fields.
type LoanDetail struct {
	models.Loan
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	Username   string `json:"user_username"`
}

// CreateLoan lends one copy of a book to a user. The availability check and
// the decrement commit as one unit per book row: of two concurrent requests
// for the last copy, exactly one wins and the other observes zero stock.
func CreateLoan(db *gorm.DB, userID, bookID uint64, policy LoanPolicy) (*models.Loan, error) {
	var loan *models.Loan

	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var book models.Book
			if err := lockForUpdate(tx).First(&book, bookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Book not found", "books.not_found")
				}
				return err
			}

			if book.AvailableCopies <= 0 {
				return types.NewError(fiber.StatusConflict,
					"No copies of this book are available", "loans.no_copies_available")
			}

			var active int64
			if err := tx.Model(&models.Loan{}).
				Where("user_id = ? AND status IN ?", userID,
					[]string{models.LoanStatusActive, models.LoanStatusOverdue}).
				Count(&active).Error; err != nil {
				return err
			}
			if active >= policy.MaxActivePerUser {
				return types.NewError(fiber.StatusBadRequest,
					"Simultaneous loan limit reached", "loans.limit_reached")
			}

			var duplicate int64
			if err := tx.Model(&models.Loan{}).
				Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID,
					[]string{models.LoanStatusActive, models.LoanStatusOverdue}).
				Count(&duplicate).Error; err != nil {
				return err
			}
			if duplicate > 0 {
				return types.NewError(fiber.StatusBadRequest,
					"You already have this book on loan", "loans.duplicate_active")
			}

			// Guarded decrement; the WHERE clause is the authoritative
			// availability check on every dialect.
			res := tx.Model(&models.Book{}).
				Where("id = ? AND available_copies > 0", bookID).
				UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return types.NewError(fiber.StatusConflict,
					"No copies of this book are available", "loans.no_copies_available")
			}

			now := time.Now().UTC()
			loan = &models.Loan{
				UserID:   userID,
				BookID:   bookID,
				LoanDate: now,
				DueDate:  now.Add(policy.Period),
				Status:   models.LoanStatusActive,
			}
			return tx.Create(loan).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ReturnLoan closes out a loan. Only the borrower or an admin may return it;
// the book's available count goes back up, capped at total_copies.
func ReturnLoan(db *gorm.DB, loanID, callerID uint64, callerRole string) (*models.Loan, error) {
	var returned *models.Loan

	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var loan models.Loan
			if err := lockForUpdate(tx).First(&loan, loanID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Loan not found", "loans.not_found")
				}
				return err
			}

			if callerRole != models.RoleAdmin && loan.UserID != callerID {
				return types.NewError(fiber.StatusForbidden,
					"You do not have permission to return this loan", "auth.forbidden")
			}

			if loan.Status == models.LoanStatusReturned {
				return types.NewError(fiber.StatusBadRequest,
					"This loan was already returned", "loans.already_returned")
			}

			now := time.Now().UTC()
			if err := tx.Model(&loan).Updates(map[string]interface{}{
				"status":      models.LoanStatusReturned,
				"return_date": now,
			}).Error; err != nil {
				return err
			}

			// Increments stay paired with decrements, so the cap only
			// triggers if the counters were tampered with out of band.
			if err := tx.Model(&models.Book{}).
				Where("id = ? AND available_copies < total_copies", loan.BookID).
				UpdateColumn("available_copies", gorm.Expr("available_copies + 1")).Error; err != nil {
				return err
			}

			loan.Status = models.LoanStatusReturned
			loan.ReturnDate = &now
			returned = &loan
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// MarkOverdue materializes the overdue state for active loans past their due
// date. Idempotent; run before listings and on a periodic sweep.
func MarkOverdue(db *gorm.DB) (int64, error) {
	res := db.Model(&models.Loan{}).
		Where("status = ? AND due_date < ? AND return_date IS NULL",
			models.LoanStatusActive, time.Now().UTC()).
		UpdateColumn("status", models.LoanStatusOverdue)
	return res.RowsAffected, res.Error
}

// ListUserLoans returns a user's loans, newest first, optionally filtered
// by status. The overdue sweep runs first so stored status matches reality.
func ListUserLoans(db *gorm.DB, userID uint64, status string) ([]LoanDetail, error) {
	if _, err := MarkOverdue(db); err != nil {
		return nil, err
	}

	query := loanDetailQuery(db).Where("loans.user_id = ?", userID)
	if status != "" {
		query = query.Where("loans.status = ?", status)
	}

	var loans []LoanDetail
	if err := query.Scan(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// ListAllLoans returns a page of all loans with detail, newest first.
func ListAllLoans(db *gorm.DB, skip, limit int, status string) ([]LoanDetail, error) {
	if _, err := MarkOverdue(db); err != nil {
		return nil, err
	}

	query := loanDetailQuery(db)
	if status != "" {
		query = query.Where("loans.status = ?", status)
	}

	var loans []LoanDetail
	if err := query.Limit(limit).Offset(skip).Scan(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// GetLoan loads one loan with detail. Ownership checks are the caller's job.
func GetLoan(db *gorm.DB, loanID uint64) (*LoanDetail, error) {
	var loan LoanDetail
	err := loanDetailQuery(db).Where("loans.id = ?", loanID).Scan(&loan).Error
	if err != nil {
		return nil, err
	}
	if loan.ID == 0 {
		return nil, types.NewError(fiber.StatusNotFound, "Loan not found", "loans.not_found")
	}
	return &loan, nil
}

func loanDetailQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Loan{}).
		Select("loans.*, books.title AS book_title, books.author AS book_author, users.username AS username").
		Joins("INNER JOIN books ON loans.book_id = books.id").
		Joins("INNER JOIN users ON loans.user_id = users.id").
		Order("loans.loan_date DESC")
}
