package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	"github.com/storefronthq/storefront-backend/pkg/security"
)

// Seeds a back-office account. Admins are never created through the API,
// only through this command.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "create-admin"})

	_ = godotenv.Load()

	username := flag.String("username", "", "admin username")
	password := flag.String("password", "", "admin password (min 8 chars)")
	flag.Parse()

	name := strings.TrimSpace(*username)
	if name == "" {
		fmt.Fprintln(os.Stderr, "missing -username")
		os.Exit(1)
	}
	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "password must be at least 8 characters")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	conn := dbClient.DB().WithContext(ctx)

	var existing models.Admin
	err = conn.Where("username = ?", name).First(&existing).Error
	switch {
	case err == nil:
		fmt.Fprintf(os.Stderr, "admin %q already exists\n", name)
		os.Exit(1)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		logg.Error(ctx, "failed to check existing admin", err)
		os.Exit(1)
	}

	hash, err := security.HashPassword(*password, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}

	admin := models.Admin{
		ID:           uuid.New(),
		Username:     name,
		PasswordHash: hash,
	}
	if err := conn.Create(&admin).Error; err != nil {
		logg.Error(ctx, "failed to create admin", err)
		os.Exit(1)
	}

	fmt.Printf("created admin %q (%s)\n", admin.Username, admin.ID)
}
