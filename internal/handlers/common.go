package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/middleware"
	"github.com/openshelf/openshelf-server/internal/types"
	"github.com/openshelf/openshelf-server/internal/utils"
)

// currentUser extracts the identity placed in context by the auth middleware.
func currentUser(c *fiber.Ctx) (*middleware.AuthenticatedUser, error) {
	user, ok := c.Locals("user").(*middleware.AuthenticatedUser)
	if !ok || user == nil {
		return nil, types.NewError(fiber.StatusUnauthorized,
			"No authenticated user in request context", "auth.not_authenticated")
	}
	return user, nil
}

// paramID parses a numeric path parameter.
func paramID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, types.NewError(fiber.StatusBadRequest,
			"Invalid "+name+" parameter", "validation.param")
	}
	return id, nil
}

// pagination parses skip/limit query parameters with the given limit cap.
func pagination(c *fiber.Ctx, defaultLimit, maxLimit int) (skip, limit int) {
	skip = c.QueryInt("skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit = c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// respondError maps service errors to the standard error envelope.
func respondError(c *fiber.Ctx, err error, fallbackType string) error {
	var ce *types.CustomError
	if errors.As(err, &ce) {
		return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
	}
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, fallbackType)
}
