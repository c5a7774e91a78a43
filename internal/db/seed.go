package db

import (
	"fmt"     // Error wrapping
	"os"      // File reading
	"strings" // String manipulation

	"marketplace/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gopkg.in/yaml.v3"           // Seed file format
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Upsert clauses
)

// SeedUser is an account created by the seed loader
type SeedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"` // Plain text, hashed on load
	Role     string `yaml:"role"`     // One of the domain roles
}

// SeedData is the shape of the seed YAML file
type SeedData struct {
	Categories []domain.Category `yaml:"categories"`
	Users      []SeedUser        `yaml:"users"`
}

// LoadSeedFile reads seed data from a YAML file
func LoadSeedFile(path string) (*SeedData, error) {
	b, err := os.ReadFile(path) // Read the whole file
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data SeedData // Decode YAML into struct
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

// Seed inserts categories and users, skipping rows that already exist
func Seed(db *gorm.DB, data *SeedData) error {
	// All or nothing
	return db.Transaction(func(tx *gorm.DB) error {
		// Categories first; slugs are stored lowercase
		for _, c := range data.Categories {
			c := domain.Category{Slug: strings.ToLower(c.Slug), Name: c.Name}
			// Existing slugs are left alone
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", c.Slug, err)
			}
		}
		for _, u := range data.Users {
			// Reject unknown roles
			if !domain.ValidRole(u.Role) {
				return fmt.Errorf("seed user %q: unknown role %q", u.Email, u.Role)
			}
			// Hash the password before storing it
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password for %q: %w", u.Email, err)
			}
			user := domain.User{Email: strings.ToLower(u.Email), Name: u.Name, Password: string(hash), Role: u.Role}
			// Existing emails are left alone
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %q: %w", u.Email, err)
			}
		}
		// Log seed summary
		logrus.WithFields(logrus.Fields{
			"categories": len(data.Categories),
			"users":      len(data.Users),
		}).Info("Seed completed.")
		return nil
	})
}
