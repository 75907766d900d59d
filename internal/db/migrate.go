package db

import (
	"errors"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt" // Seed password hashing

	"gorm.io/driver/sqlite" // SQLite driver for GORM (single-file embedded store)
	"gorm.io/gorm"          // GORM ORM library
)

// Open opens (creating if needed) the embedded user database at path.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

// Migrate performs automatic migration for the database schema and seeds
// the default admin account. AutoMigrate issues additive column changes
// only, so repeated calls against an existing database are safe.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(&domain.User{}); err != nil {
		return err
	}
	if err := seedAdmin(database); err != nil {
		return err
	}
	logrus.Info("Migration completed.")
	return nil
}

// seedAdmin creates the default admin user when no account with that
// username exists yet.
func seedAdmin(database *gorm.DB) error {
	var existing domain.User
	err := database.Where("username = ?", "admin").First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := domain.User{Username: "admin", Password: string(hash), Role: "admin"}
	if err := database.Create(&admin).Error; err != nil {
		return err
	}
	logrus.Info("Seeded default admin account")
	return nil
}
