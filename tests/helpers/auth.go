package helpers

import (
	"testing"

	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"gorm.io/gorm"
)

// CreateUserWithToken registers an account with the given role and returns
// the user plus a bearer token for it.
func CreateUserWithToken(t *testing.T, cfg *config.Config, db *gorm.DB, username, role string) (*models.User, string) {
	t.Helper()

	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Failed to register %s: %v", username, err)
	}

	token, err := services.CreateAccessToken(cfg, user)
	if err != nil {
		t.Fatalf("Failed to create token for %s: %v", username, err)
	}
	return user, token
}
