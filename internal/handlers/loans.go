package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/gorm"
)

// LoanHandler handles loan lifecycle routes
type LoanHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func (h *LoanHandler) policy() services.LoanPolicy {
	return services.LoanPolicy{
		Period:           time.Duration(h.Cfg.LoanPeriodDays) * 24 * time.Hour,
		MaxActivePerUser: int64(h.Cfg.MaxLoansPerUser),
	}
}

// Create handles POST /api/loans
// @Summary Borrow a book
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body object true "Book to borrow"
// @Success 201 {object} models.Loan
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /loans [post]
func (h *LoanHandler) Create(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "createLoan")
	}

	var body struct {
		BookID uint64 `json:"book_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.BookID == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "loans.validation.input")
	}

	loan, err := services.CreateLoan(h.DB, caller.ID, body.BookID, h.policy())
	if err != nil {
		return respondError(c, err, "createLoan")
	}
	return utils.DataResponse(c, loan, fiber.StatusCreated)
}

// Return handles PUT /api/loans/:id/return
// @Summary Return a borrowed book
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} models.Loan
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /loans/{id}/return [put]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "returnLoan")
	}
	loanID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "returnLoan")
	}

	loan, err := services.ReturnLoan(h.DB, loanID, caller.ID, caller.Role)
	if err != nil {
		return respondError(c, err, "returnLoan")
	}
	return utils.DataResponse(c, loan, fiber.StatusOK)
}

// MyLoans handles GET /api/loans/my-loans
// @Summary List the caller's loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status: active, returned, overdue"
// @Success 200 {array} services.LoanDetail
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /loans/my-loans [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "myLoans")
	}

	loans, err := services.ListUserLoans(h.DB, caller.ID, c.Query("status", ""))
	if err != nil {
		return respondError(c, err, "myLoans")
	}
	return utils.DataResponse(c, loans, fiber.StatusOK)
}

// ListAll handles GET /api/loans
// @Summary List all loans (admin)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Records to skip"
// @Param limit query int false "Page size (max 100)"
// @Param status query string false "Filter by status"
// @Success 200 {array} services.LoanDetail
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /loans [get]
func (h *LoanHandler) ListAll(c *fiber.Ctx) error {
	skip, limit := pagination(c, 50, 100)

	loans, err := services.ListAllLoans(h.DB, skip, limit, c.Query("status", ""))
	if err != nil {
		return respondError(c, err, "listLoans")
	}
	return utils.DataResponse(c, loans, fiber.StatusOK)
}

// GetByID handles GET /api/loans/:id
// @Summary Get one loan
// @Description Members see only their own loans; admins see any.
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} services.LoanDetail
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /loans/{id} [get]
func (h *LoanHandler) GetByID(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "getLoan")
	}
	loanID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "getLoan")
	}

	loan, err := services.GetLoan(h.DB, loanID)
	if err != nil {
		return respondError(c, err, "getLoan")
	}

	if caller.Role != models.RoleAdmin && loan.UserID != caller.ID {
		return utils.ErrorResponse(c, "You do not have permission to view this loan",
			fiber.StatusForbidden, "auth.forbidden")
	}
	return utils.DataResponse(c, loan, fiber.StatusOK)
}
