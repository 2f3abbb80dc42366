// Command seed_admin creates the initial admin account. It is idempotent:
// when a user with the given email already exists nothing is written.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/pkg/config"
	"github.com/noah-isme/portfolio-api/pkg/database"
)

func main() {
	var (
		email    string
		username string
		fullName string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "Admin email address")
	flag.StringVar(&username, "username", "admin", "Admin username")
	flag.StringVar(&fullName, "name", "Administrator", "Admin display name")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Admin password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database operation timeout")
	flag.Parse()

	if email == "" || password == "" {
		log.Fatal("both -email and -password (or ADMIN_EMAIL / ADMIN_PASSWORD) are required")
	}
	if problems := service.ValidatePasswordStrength(password); len(problems) > 0 {
		log.Fatalf("password is too weak: %v", problems)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	repo := repository.NewUserRepository(db)

	existing, err := repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("failed to look up user: %v", err)
	}
	if existing != nil {
		fmt.Printf("user %s already exists (id %s), nothing to do\n", email, existing.ID)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		IsActive:     true,
		IsAdmin:      true,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("admin user %s created (id %s)\n", email, user.ID)
}
