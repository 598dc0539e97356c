package integration_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/database"
	"github.com/openshelf/openshelf-server/internal/handlers"
	"github.com/openshelf/openshelf-server/internal/middleware"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/types"
	"github.com/openshelf/openshelf-server/tests/helpers"
	"gorm.io/gorm"
)

// TestWithMariaDB exercises the service layer against a real MariaDB
// container, where FOR UPDATE row locks are in force.
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mariadb := helpers.StartMariaDB(t)
	defer mariadb.Terminate(t)
	cfg := mariadb.Config

	helpers.PingDatabase(t, cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Run("LoanLifecycle", func(t *testing.T) {
		defer helpers.TruncateAll(t, db)
		testLoanLifecycle(t, cfg, db)
	})

	t.Run("ConcurrentBorrowers", func(t *testing.T) {
		defer helpers.TruncateAll(t, db)
		testConcurrentBorrowers(t, cfg, db)
	})

	t.Run("ReviewAggregate", func(t *testing.T) {
		defer helpers.TruncateAll(t, db)
		testReviewAggregate(t, cfg, db)
	})

	t.Run("HTTPRoundTrip", func(t *testing.T) {
		defer helpers.TruncateAll(t, db)
		testHTTPRoundTrip(t, cfg, db)
	})
}

// setupApp wires the API routes the HTTP round-trip exercises.
func setupApp(cfg *config.Config, db *gorm.DB) *fiber.App {
	app := fiber.New()

	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	loanHandler := &handlers.LoanHandler{DB: db, Cfg: cfg}
	reviewHandler := &handlers.ReviewHandler{DB: db}

	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/loans", middleware.AuthUser(cfg, db), loanHandler.Create)
	api.Put("/loans/:id/return", middleware.AuthUser(cfg, db), loanHandler.Return)
	api.Post("/reviews", middleware.AuthUser(cfg, db), reviewHandler.Create)
	api.Delete("/reviews/:id", middleware.AuthUser(cfg, db), reviewHandler.Delete)

	return app
}

func jsonRequest(method, target, token string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func testLoanLifecycle(t *testing.T, cfg *config.Config, db *gorm.DB) {
	user, _ := helpers.CreateUserWithToken(t, cfg, db, "it_reader", models.RoleMember)
	book := helpers.CreateBook(t, db, "Integration Book", 2, 2)

	loan, err := services.CreateLoan(db, user.ID, book.ID, services.DefaultLoanPolicy())
	if err != nil {
		t.Fatalf("CreateLoan failed: %v", err)
	}

	var reloaded models.Book
	if err := db.First(&reloaded, book.ID).Error; err != nil {
		t.Fatalf("Failed to reload book: %v", err)
	}
	if reloaded.AvailableCopies != 1 {
		t.Errorf("Expected 1 available copy, got %d", reloaded.AvailableCopies)
	}

	if _, err := services.ReturnLoan(db, loan.ID, user.ID, user.Role); err != nil {
		t.Fatalf("ReturnLoan failed: %v", err)
	}
	if err := db.First(&reloaded, book.ID).Error; err != nil {
		t.Fatalf("Failed to reload book: %v", err)
	}
	if reloaded.AvailableCopies != 2 {
		t.Errorf("Expected 2 available copies after return, got %d", reloaded.AvailableCopies)
	}
}

func testConcurrentBorrowers(t *testing.T, cfg *config.Config, db *gorm.DB) {
	const borrowers = 12
	const copies = 4
	book := helpers.CreateBook(t, db, "Contended Book", copies, copies)

	users := make([]*models.User, borrowers)
	for i := range users {
		users[i], _ = helpers.CreateUserWithToken(t, cfg, db,
			"it_borrower_"+string(rune('a'+i)), models.RoleMember)
	}

	var wg sync.WaitGroup
	results := make(chan error, borrowers)
	for _, u := range users {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := services.CreateLoan(db, userID, book.ID, services.DefaultLoanPolicy())
			results <- err
		}(u.ID)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var ce *types.CustomError
		if !errors.As(err, &ce) {
			t.Errorf("Unexpected non-domain error: %v", err)
			continue
		}
		if ce.Type != "loans.no_copies_available" && ce.Type != "conflict" {
			t.Errorf("Unexpected rejection type %q: %v", ce.Type, err)
		}
	}
	if succeeded != copies {
		t.Errorf("Expected %d successful loans, got %d", copies, succeeded)
	}

	var reloaded models.Book
	if err := db.First(&reloaded, book.ID).Error; err != nil {
		t.Fatalf("Failed to reload book: %v", err)
	}
	if reloaded.AvailableCopies != 0 {
		t.Errorf("Expected 0 available copies, got %d", reloaded.AvailableCopies)
	}
}

func testReviewAggregate(t *testing.T, cfg *config.Config, db *gorm.DB) {
	alice, _ := helpers.CreateUserWithToken(t, cfg, db, "it_alice", models.RoleMember)
	bob, _ := helpers.CreateUserWithToken(t, cfg, db, "it_bob", models.RoleMember)
	book := helpers.CreateBook(t, db, "Rated Book", 1, 1)

	if _, err := services.CreateReview(db, alice.ID, services.ReviewInput{
		BookID: book.ID, Rating: 4,
	}); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}
	if _, err := services.CreateReview(db, bob.ID, services.ReviewInput{
		BookID: book.ID, Rating: 5,
	}); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	var reloaded models.Book
	if err := db.First(&reloaded, book.ID).Error; err != nil {
		t.Fatalf("Failed to reload book: %v", err)
	}
	if reloaded.AverageRating != 4.50 || reloaded.TotalReviews != 2 {
		t.Errorf("Expected aggregate 4.50/2, got %.2f/%d",
			reloaded.AverageRating, reloaded.TotalReviews)
	}
}

// testHTTPRoundTrip drives the full borrow/return/review flow through the
// Fiber routes rather than the service layer.
func testHTTPRoundTrip(t *testing.T, cfg *config.Config, db *gorm.DB) {
	app := setupApp(cfg, db)
	book := helpers.CreateBook(t, db, "HTTP Book", 1, 1)

	resp, err := app.Test(jsonRequest("POST", "/api/auth/register", "", fiber.Map{
		"username": "it_http_reader",
		"email":    "it_http_reader@example.com",
		"password": "secret1",
	}))
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusCreated)

	resp, err = app.Test(jsonRequest("POST", "/api/auth/login", "", fiber.Map{
		"username": "it_http_reader",
		"password": "secret1",
	}))
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var login map[string]string
	helpers.ParseJSON(t, resp, &login)
	token := login["access_token"]
	if token == "" {
		t.Fatal("Login returned no access token")
	}

	resp, err = app.Test(jsonRequest("POST", "/api/loans", token, fiber.Map{"book_id": book.ID}))
	if err != nil {
		t.Fatalf("Borrow request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var loan models.Loan
	helpers.ParseJSON(t, resp, &loan)

	// Borrowing the same book twice while the loan is active is rejected.
	resp, err = app.Test(jsonRequest("POST", "/api/loans", token, fiber.Map{"book_id": book.ID}))
	if err != nil {
		t.Fatalf("Borrow request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusBadRequest)
	helpers.AssertErrorType(t, resp, "loans.duplicate_active")

	resp, err = app.Test(jsonRequest("PUT", fmt.Sprintf("/api/loans/%d/return", loan.ID), token, nil))
	if err != nil {
		t.Fatalf("Return request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusOK)

	resp, err = app.Test(jsonRequest("POST", "/api/reviews", token, fiber.Map{
		"book_id": book.ID, "rating": 5, "comment": "Finished it in one sitting",
	}))
	if err != nil {
		t.Fatalf("Review request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var review models.Review
	helpers.ParseJSON(t, resp, &review)

	resp, err = app.Test(jsonRequest("DELETE", fmt.Sprintf("/api/reviews/%d", review.ID), token, nil))
	if err != nil {
		t.Fatalf("Delete request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusNoContent)
	helpers.AssertNoContent(t, resp)
}
