package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,100}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
)

// Claims is the JWT payload. Subject carries the username.
type Claims struct {
	UserID uint64 `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is the payload for creating a new account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateAccessToken issues a signed JWT for the user.
func CreateAccessToken(cfg *config.Config, user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.TokenExpiryMinutes) * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// DecodeAccessToken validates a JWT and returns its claims.
func DecodeAccessToken(cfg *config.Config, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, types.NewError(fiber.StatusUnauthorized, "Invalid or expired token", "auth.not_authenticated")
	}
	return claims, nil
}

// RegisterUser creates a new account after validating the input.
// Username and email must be unique.
func RegisterUser(db *gorm.DB, input RegisterInput) (*models.User, error) {
	if !usernameRe.MatchString(input.Username) {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Username must be 3-100 characters of letters, digits, and underscores", "auth.validation.username")
	}
	if !emailRe.MatchString(input.Email) {
		return nil, types.NewError(fiber.StatusBadRequest, "Invalid email address", "auth.validation.email")
	}
	if len(input.Password) < 6 || !hasLetter.MatchString(input.Password) || !hasDigit.MatchString(input.Password) {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Password must be at least 6 characters with a letter and a digit", "auth.validation.password")
	}

	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return nil, types.NewError(fiber.StatusBadRequest, "Unknown role", "auth.validation.role")
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, types.NewError(fiber.StatusBadRequest,
			"Username or email is already registered", "auth.duplicate_account")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		PublicID:     uuid.NewString(),
		Username:     input.Username,
		Email:        strings.ToLower(input.Email),
		PasswordHash: hash,
		FullName:     input.FullName,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticateUser checks credentials and returns the user on success.
// Credential failures are indistinguishable to the caller.
func AuthenticateUser(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(fiber.StatusUnauthorized, "Invalid credentials", "auth.invalid_credentials")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, types.NewError(fiber.StatusForbidden, "Account is inactive", "auth.inactive_account")
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, types.NewError(fiber.StatusUnauthorized, "Invalid credentials", "auth.invalid_credentials")
	}

	return &user, nil
}

// GetUserByUsername loads a user by username.
func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(fiber.StatusNotFound, "User not found", "users.not_found")
		}
		return nil, err
	}
	return &user, nil
}
