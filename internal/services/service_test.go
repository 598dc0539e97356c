package services_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/openshelf/openshelf-server/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB creates a file-backed SQLite database under t.TempDir().
// File-backed (not :memory:) so every pooled connection sees the same
// database, which the concurrency tests depend on.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Loan{},
		&models.Review{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

var testUserSeq int

// createTestUser inserts a member account directly, bypassing registration.
func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	testUserSeq++
	user := &models.User{
		PublicID:     fmt.Sprintf("00000000-0000-0000-0000-%012d", testUserSeq),
		Username:     fmt.Sprintf("user%d", testUserSeq),
		Email:        fmt.Sprintf("user%d@example.com", testUserSeq),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

var testBookSeq int

// createTestBook inserts a catalog entry with the given copy counts.
func createTestBook(t *testing.T, db *gorm.DB, total, available int64) *models.Book {
	t.Helper()
	testBookSeq++
	book := &models.Book{
		Title:           fmt.Sprintf("Test Book %d", testBookSeq),
		Author:          "Test Author",
		ISBN:            testISBN13(testBookSeq),
		TotalCopies:     total,
		AvailableCopies: available,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}
	return book
}

// testISBN13 produces a unique, checksum-valid ISBN-13 from a sequence number.
func testISBN13(seq int) string {
	body := fmt.Sprintf("978000%06d", seq)
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return fmt.Sprintf("%s%d", body, check)
}
