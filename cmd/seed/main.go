package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/openshelf/openshelf-server/data"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/database"
	"github.com/openshelf/openshelf-server/internal/models"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/types"
	"gorm.io/gorm"
)

// Seeds the database: creates the admin account from ADMIN_USERNAME,
// ADMIN_EMAIL and ADMIN_PASSWORD, then loads the embedded starter catalog.
// Safe to run repeatedly; existing records are left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	seedAdmin(db)
	seedBooks(db)
}

func seedAdmin(db *gorm.DB) {
	username := os.Getenv("ADMIN_USERNAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || email == "" || password == "" {
		log.Println("ADMIN_USERNAME/ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		var ce *types.CustomError
		if errors.As(err, &ce) && ce.Code == 400 {
			log.Printf("Admin user %q not created: %s", username, ce.Message)
			return
		}
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Created admin user %q (id=%d)", user.Username, user.ID)
}

func seedBooks(db *gorm.DB) {
	var inputs []services.BookInput
	if err := json.Unmarshal(data.SeedBooks, &inputs); err != nil {
		log.Fatalf("Failed to parse embedded catalog: %v", err)
	}

	created := 0
	for _, input := range inputs {
		if _, err := services.CreateBook(db, input); err != nil {
			var ce *types.CustomError
			if errors.As(err, &ce) {
				log.Printf("Skipping %q: %s", input.Title, ce.Message)
				continue
			}
			log.Fatalf("Failed to create book %q: %v", input.Title, err)
		}
		created++
	}
	log.Printf("Catalog seed complete, %d of %d books created", created, len(inputs))
}
