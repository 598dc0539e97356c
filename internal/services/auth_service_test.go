package services_test

import (
	"testing"

	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		TokenExpiryMinutes: 30,
	}
}

func TestRegisterUserDefaultsToMember(t *testing.T) {
	db := setupTestDB(t)

	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: "reader_one",
		Email:    "Reader@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	if user.Role != models.RoleMember {
		t.Errorf("Expected member role, got %q", user.Role)
	}
	if user.Email != "reader@example.com" {
		t.Errorf("Expected lowercased email, got %q", user.Email)
	}
	if user.PublicID == "" {
		t.Error("Expected a public id to be assigned")
	}
	if user.PasswordHash == "secret1" {
		t.Error("Password must not be stored in the clear")
	}
}

func TestRegisterUserValidation(t *testing.T) {
	db := setupTestDB(t)

	cases := []struct {
		name     string
		input    services.RegisterInput
		wantType string
	}{
		{"short username", services.RegisterInput{Username: "ab", Email: "a@b.com", Password: "secret1"}, "auth.validation.username"},
		{"bad email", services.RegisterInput{Username: "reader", Email: "nope", Password: "secret1"}, "auth.validation.email"},
		{"short password", services.RegisterInput{Username: "reader", Email: "a@b.com", Password: "a1"}, "auth.validation.password"},
		{"no digit", services.RegisterInput{Username: "reader", Email: "a@b.com", Password: "secrets"}, "auth.validation.password"},
		{"unknown role", services.RegisterInput{Username: "reader", Email: "a@b.com", Password: "secret1", Role: "root"}, "auth.validation.role"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := services.RegisterUser(db, tc.input)
			assertErrorType(t, err, tc.wantType)
		})
	}
}

func TestRegisterUserDuplicateAccount(t *testing.T) {
	db := setupTestDB(t)

	input := services.RegisterInput{Username: "reader", Email: "reader@example.com", Password: "secret1"}
	if _, err := services.RegisterUser(db, input); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	_, err := services.RegisterUser(db, input)
	assertErrorType(t, err, "auth.duplicate_account")

	// Same email under a different username is still a duplicate.
	input.Username = "reader2"
	_, err = services.RegisterUser(db, input)
	assertErrorType(t, err, "auth.duplicate_account")
}

func TestAuthenticateUser(t *testing.T) {
	db := setupTestDB(t)

	if _, err := services.RegisterUser(db, services.RegisterInput{
		Username: "reader", Email: "reader@example.com", Password: "secret1",
	}); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	user, err := services.AuthenticateUser(db, "reader", "secret1")
	if err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}
	if user.Username != "reader" {
		t.Errorf("Expected reader, got %q", user.Username)
	}

	// Wrong password and unknown user look the same to the caller.
	_, err = services.AuthenticateUser(db, "reader", "wrong1")
	assertErrorType(t, err, "auth.invalid_credentials")
	_, err = services.AuthenticateUser(db, "nobody", "secret1")
	assertErrorType(t, err, "auth.invalid_credentials")
}

func TestAuthenticateInactiveUser(t *testing.T) {
	db := setupTestDB(t)

	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: "reader", Email: "reader@example.com", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if err := db.Model(user).UpdateColumn("is_active", false).Error; err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}

	_, err = services.AuthenticateUser(db, "reader", "secret1")
	assertErrorType(t, err, "auth.inactive_account")
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testAuthConfig()
	user := &models.User{ID: 42, Username: "reader", Role: models.RoleMember}

	token, err := services.CreateAccessToken(cfg, user)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	claims, err := services.DecodeAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("DecodeAccessToken failed: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "reader" || claims.Role != models.RoleMember {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestDecodeAccessTokenRejectsBadSignature(t *testing.T) {
	cfg := testAuthConfig()
	user := &models.User{ID: 1, Username: "reader", Role: models.RoleMember}

	token, err := services.CreateAccessToken(cfg, user)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	other := &config.Config{JWTSecret: "different-secret", TokenExpiryMinutes: 30}
	_, err = services.DecodeAccessToken(other, token)
	assertErrorType(t, err, "auth.not_authenticated")

	_, err = services.DecodeAccessToken(cfg, "not.a.token")
	assertErrorType(t, err, "auth.not_authenticated")
}

func TestDecodeAccessTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.TokenExpiryMinutes = -1
	user := &models.User{ID: 1, Username: "reader", Role: models.RoleMember}

	token, err := services.CreateAccessToken(cfg, user)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	_, err = services.DecodeAccessToken(cfg, token)
	assertErrorType(t, err, "auth.not_authenticated")
}
