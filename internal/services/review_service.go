package services

import (
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/types"
	"gorm.io/gorm"
)

// ReviewInput is the payload for submitting a review.
type ReviewInput struct {
	BookID  uint64 `json:"book_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// ReviewDetail is a review joined with display fields.
type ReviewDetail struct {
	models.Review
	Username  string `json:"username,omitempty"`
	BookTitle string `json:"book_title,omitempty"`
}

// CreateReview records a user's rating for a book and recomputes the book's
// aggregate in the same transaction, so no reader ever observes a review
// without its aggregate update. A second review for the same (user, book)
// pair is rejected; use UpdateReview to change an existing one.
func CreateReview(db *gorm.DB, userID uint64, input ReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Rating must be between 1 and 5", "reviews.invalid_rating")
	}
	if len(input.Comment) > 1000 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Comment must be at most 1000 characters", "reviews.validation.comment")
	}

	var review *models.Review
	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var book models.Book
			if err := lockForUpdate(tx).First(&book, input.BookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Book not found", "books.not_found")
				}
				return err
			}

			var existing int64
			if err := tx.Model(&models.Review{}).
				Where("user_id = ? AND book_id = ?", userID, input.BookID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return types.NewError(fiber.StatusBadRequest,
					"You have already reviewed this book", "reviews.duplicate")
			}

			review = &models.Review{
				UserID:  userID,
				BookID:  input.BookID,
				Rating:  input.Rating,
				Comment: input.Comment,
			}
			if err := tx.Create(review).Error; err != nil {
				return err
			}

			// Mark the reviewer's latest returned loan of this book, if any,
			// so loan listings can show the review link.
			var loan models.Loan
			err := tx.Where("user_id = ? AND book_id = ? AND status = ?",
				userID, input.BookID, models.LoanStatusReturned).
				Order("return_date DESC").First(&loan).Error
			if err == nil && !loan.HasReview {
				if err := tx.Model(&loan).UpdateColumn("has_review", true).Error; err != nil {
					return err
				}
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			return recomputeBookRating(tx, input.BookID)
		})
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// UpdateReview edits an existing review in place (author only) and
// recomputes the book aggregate.
func UpdateReview(db *gorm.DB, reviewID, callerID uint64, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Rating must be between 1 and 5", "reviews.invalid_rating")
	}
	if len(comment) > 1000 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Comment must be at most 1000 characters", "reviews.validation.comment")
	}

	var updated *models.Review
	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var review models.Review
			if err := tx.First(&review, reviewID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Review not found", "reviews.not_found")
				}
				return err
			}

			if review.UserID != callerID {
				return types.NewError(fiber.StatusForbidden,
					"You do not have permission to edit this review", "auth.forbidden")
			}

			var book models.Book
			if err := lockForUpdate(tx).First(&book, review.BookID).Error; err != nil {
				return err
			}

			if err := tx.Model(&review).Updates(map[string]interface{}{
				"rating":  rating,
				"comment": comment,
			}).Error; err != nil {
				return err
			}

			review.Rating = rating
			review.Comment = comment
			updated = &review
			return recomputeBookRating(tx, review.BookID)
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteReview removes a review (author or admin) and recomputes the book
// aggregate. A book left with no reviews returns to 0.00 / 0.
func DeleteReview(db *gorm.DB, reviewID, callerID uint64, callerRole string) error {
	return withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var review models.Review
			if err := tx.First(&review, reviewID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.NewError(fiber.StatusNotFound, "Review not found", "reviews.not_found")
				}
				return err
			}

			if callerRole != models.RoleAdmin && review.UserID != callerID {
				return types.NewError(fiber.StatusForbidden,
					"You do not have permission to delete this review", "auth.forbidden")
			}

			var book models.Book
			if err := lockForUpdate(tx).First(&book, review.BookID).Error; err != nil {
				return err
			}

			if err := tx.Delete(&review).Error; err != nil {
				return err
			}

			return recomputeBookRating(tx, review.BookID)
		})
	})
}

// ListBookReviews returns a book's reviews with usernames, newest first.
func ListBookReviews(db *gorm.DB, bookID uint64) ([]ReviewDetail, error) {
	var reviews []ReviewDetail
	err := db.Model(&models.Review{}).
		Select("reviews.*, users.username AS username").
		Joins("INNER JOIN users ON reviews.user_id = users.id").
		Where("reviews.book_id = ?", bookID).
		Order("reviews.created_at DESC").
		Scan(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListUserReviews returns a user's reviews with book titles, newest first.
func ListUserReviews(db *gorm.DB, userID uint64) ([]ReviewDetail, error) {
	var reviews []ReviewDetail
	err := db.Model(&models.Review{}).
		Select("reviews.*, books.title AS book_title").
		Joins("INNER JOIN books ON reviews.book_id = books.id").
		Where("reviews.user_id = ?", userID).
		Order("reviews.created_at DESC").
		Scan(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// recomputeBookRating rewrites a book's aggregate from the full review set.
// Must run inside the transaction holding the book row so the review change
// and the aggregate commit together.
func recomputeBookRating(tx *gorm.DB, bookID uint64) error {
	var agg struct {
		Count int64
		Avg   float64
	}
	err := tx.Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
		Where("book_id = ?", bookID).
		Scan(&agg).Error
	if err != nil {
		return err
	}

	rounded := math.Round(agg.Avg*100) / 100

	return tx.Model(&models.Book{}).
		Where("id = ?", bookID).
		Updates(map[string]interface{}{
			"average_rating": rounded,
			"total_reviews":  agg.Count,
		}).Error
}
