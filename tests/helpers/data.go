package helpers

import (
	"fmt"
	"testing"

	"github.com/openshelf/openshelf-server/internal/models"
	"gorm.io/gorm"
)

var bookSeq int

// CreateBook inserts a catalog entry with the given copy counts.
func CreateBook(t *testing.T, db *gorm.DB, title string, total, available int64) *models.Book {
	t.Helper()
	bookSeq++
	book := &models.Book{
		Title:           title,
		Author:          "Integration Author",
		ISBN:            fmt.Sprintf("ITEST%08d", bookSeq),
		TotalCopies:     total,
		AvailableCopies: available,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}
	return book
}

// TruncateAll clears every table between test groups.
func TruncateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, model := range []interface{}{
		&models.Review{}, &models.Loan{}, &models.Book{}, &models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			t.Fatalf("Failed to truncate: %v", err)
		}
	}
}
