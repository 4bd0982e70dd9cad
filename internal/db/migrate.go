package db

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Agent{},
		&models.Request{},
		&models.Notification{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedUsers upserts the customer and agent profiles listed in configuration.
// Seeded agents start OFF with score 0; existing agent state is left alone.
func SeedUsers(db *gorm.DB, seed config.SeedConfig) (int, error) {
	n := 0
	for _, su := range seed.Customers {
		if _, err := upsertUser(db, su, models.RoleCustomer); err != nil {
			return n, err
		}
		n++
	}
	for _, su := range seed.Agents {
		u, err := upsertUser(db, su, models.RoleAgent)
		if err != nil {
			return n, err
		}
		agent := models.Agent{UserID: u.ID, Status: models.AgentOff}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&agent).Error; err != nil {
			return n, fmt.Errorf("db: seed agent %q: %w", su.Email, err)
		}
		n++
	}
	return n, nil
}

func upsertUser(db *gorm.DB, su config.SeedUser, role string) (*models.User, error) {
	u := models.User{
		Email:       su.Email,
		FirstName:   su.FirstName,
		LastName:    su.LastName,
		PhoneNumber: su.PhoneNumber,
		Role:        role,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "phone_number"}),
	}).Create(&u)
	if result.Error != nil {
		return nil, fmt.Errorf("db: seed user %q: %w", su.Email, result.Error)
	}
	// The upsert does not report the existing row's ID on every dialect.
	var stored models.User
	if err := db.Where("email = ?", su.Email).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("db: reload seeded user %q: %w", su.Email, err)
	}
	if stored.Role != role {
		return nil, fmt.Errorf("db: seed user %q: already registered as %s", su.Email, stored.Role)
	}
	return &stored, nil
}
