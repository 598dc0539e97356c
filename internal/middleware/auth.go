package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/types"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/gorm"
)

// AuthenticatedUser is the caller identity set by the auth middleware.
type AuthenticatedUser struct {
	ID       uint64
	PublicID string
	Username string
	Role     string
}

// AuthUser validates the bearer token and admits any active account
func AuthUser(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, db, []string{models.RoleMember, models.RoleAdmin}, "auth.not_authenticated")
	}
}

// AuthAdmin validates the bearer token and admits only admins
func AuthAdmin(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, db, []string{models.RoleAdmin}, "auth.forbidden")
	}
}

// authorize performs the token and role check
func authorize(c *fiber.Ctx, cfg *config.Config, db *gorm.DB, roles []string, errorType string) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return utils.ErrorResponse(c, "Authorization header not provided",
			fiber.StatusUnauthorized, "auth.not_authenticated")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return utils.ErrorResponse(c, "Invalid authorization scheme",
			fiber.StatusUnauthorized, "auth.not_authenticated")
	}

	claims, err := services.DecodeAccessToken(cfg, token)
	if err != nil {
		var ce *types.CustomError
		if errors.As(err, &ce) {
			return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
		}
		return utils.ErrorResponse(c, "Invalid or expired token",
			fiber.StatusUnauthorized, "auth.not_authenticated")
	}

	user, err := services.GetUserByUsername(db, claims.Subject)
	if err != nil {
		return utils.ErrorResponse(c, "Token subject no longer exists",
			fiber.StatusUnauthorized, "auth.not_authenticated")
	}
	if !user.IsActive {
		return utils.ErrorResponse(c, "Account is inactive",
			fiber.StatusForbidden, "auth.inactive_account")
	}

	allowed := false
	for _, role := range roles {
		if user.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return utils.ErrorResponse(c, "You do not have permission to perform this action",
			fiber.StatusForbidden, errorType)
	}

	c.Locals("user", &AuthenticatedUser{
		ID:       user.ID,
		PublicID: user.PublicID,
		Username: user.Username,
		Role:     user.Role,
	})

	return c.Next()
}
