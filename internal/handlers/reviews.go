package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/gorm"
)

// ReviewHandler handles review routes
type ReviewHandler struct {
	DB *gorm.DB
}

// Create handles POST /api/reviews
// @Summary Submit a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ReviewInput true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "createReview")
	}

	var input services.ReviewInput
	if err := c.BodyParser(&input); err != nil || input.BookID == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "reviews.validation.input")
	}

	review, err := services.CreateReview(h.DB, caller.ID, input)
	if err != nil {
		return respondError(c, err, "createReview")
	}
	return utils.DataResponse(c, review, fiber.StatusCreated)
}

// Update handles PUT /api/reviews/:id
// @Summary Edit your review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param body body object true "Rating and comment"
// @Success 200 {object} models.Review
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "updateReview")
	}
	reviewID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "updateReview")
	}

	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "reviews.validation.input")
	}

	review, err := services.UpdateReview(h.DB, reviewID, caller.ID, body.Rating, body.Comment)
	if err != nil {
		return respondError(c, err, "updateReview")
	}
	return utils.DataResponse(c, review, fiber.StatusOK)
}

// Delete handles DELETE /api/reviews/:id
// @Summary Delete a review
// @Description Authors delete their own reviews; admins delete any.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "deleteReview")
	}
	reviewID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "deleteReview")
	}

	if err := services.DeleteReview(h.DB, reviewID, caller.ID, caller.Role); err != nil {
		return respondError(c, err, "deleteReview")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ByUser handles GET /api/reviews/user/:id
// @Summary List a user's reviews
// @Description Members see only their own reviews; admins see any user's.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} services.ReviewDetail
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /reviews/user/{id} [get]
func (h *ReviewHandler) ByUser(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "userReviews")
	}
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err, "userReviews")
	}

	if caller.Role != models.RoleAdmin && caller.ID != userID {
		return utils.ErrorResponse(c, "You do not have permission to view these reviews",
			fiber.StatusForbidden, "auth.forbidden")
	}

	reviews, err := services.ListUserReviews(h.DB, userID)
	if err != nil {
		return respondError(c, err, "userReviews")
	}
	return utils.DataResponse(c, reviews, fiber.StatusOK)
}
