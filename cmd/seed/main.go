// Seed tool: creates a user with a wallet and prints an access token, so
// the API can be exercised without a separate identity service.
package main

import (
	"errors"
	"log"
	"os"
	"time"

	"purse/internal/config"
	"purse/internal/models"
	"purse/internal/repositories"
	"purse/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	role := config.GetEnv("SEED_ROLE", "user")

	if email == "" || password == "" {
		log.Fatal("SEED_EMAIL and SEED_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err != nil {
				log.Printf("⚠️ Failed to get SQL DB instance: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
			}
		}
	}()

	userRepo := repositories.NewUserRepository(repositories.DB)

	user, err := userRepo.GetByEmail(email)
	switch {
	case err == nil:
		log.Println("User already exists")
	case errors.Is(err, repositories.ErrUserNotFound):
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}

		user = &models.User{
			Email:        email,
			Password:     string(hashedPassword),
			Role:         role,
			TokenVersion: 1,
		}
		if err := userRepo.Create(user); err != nil {
			log.Fatal("Failed to create user:", err)
		}
		log.Println("✅ User created")
	default:
		log.Fatal("Failed to look up user:", err)
	}

	var wallet models.Wallet
	if err := repositories.DB.Where("user_id = ?", user.ID).First(&wallet).Error; err != nil {
		wallet = models.Wallet{
			UserID:   user.ID,
			Currency: config.GetEnv("SEED_CURRENCY", "USD"),
			IsActive: true,
		}
		if err := repositories.DB.Create(&wallet).Error; err != nil {
			log.Fatal("Failed to create wallet:", err)
		}
		log.Println("✅ Wallet created")
	}

	token, err := utils.GenerateToken(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Permissions:  models.GetDefaultPermissions(user.Role),
		TokenVersion: user.TokenVersion,
	}, 24*time.Hour)
	if err != nil {
		log.Fatal("Failed to generate token:", err)
	}

	log.Printf("Access token (24h): %s", token)
}
