package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles account routes
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Register handles POST /api/auth/register
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Account details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "auth.validation.input")
	}

	// Self-registration never grants admin; the seed utility creates admins.
	input.Role = ""

	user, err := services.RegisterUser(h.DB, input)
	if err != nil {
		return respondError(c, err, "register")
	}

	return utils.DataResponse(c, user, fiber.StatusCreated)
}

// Login handles POST /api/auth/login
// @Summary Log in and receive a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body object true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "auth.validation.input")
	}
	if body.Username == "" || body.Password == "" {
		return utils.ErrorResponse(c, "Username and password are required", fiber.StatusBadRequest, "auth.validation.input")
	}

	user, err := services.AuthenticateUser(h.DB, body.Username, body.Password)
	if err != nil {
		return respondError(c, err, "login")
	}

	token, err := services.CreateAccessToken(h.Cfg, user)
	if err != nil {
		return respondError(c, err, "login")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me handles GET /api/auth/me
// @Summary Get the authenticated account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "me")
	}

	user, err := services.GetUserByUsername(h.DB, caller.Username)
	if err != nil {
		return respondError(c, err, "me")
	}

	return utils.DataResponse(c, user, fiber.StatusOK)
}
