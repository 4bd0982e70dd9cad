// Package directory holds user profiles and agent availability state.
package directory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var emailPattern = regexp.MustCompile(`^(.+)@(\S+)$`)

// RegisterOpts holds the profile fields for a new user.
type RegisterOpts struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// ValidEmail reports whether email looks like local@domain.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Register creates a user profile with the given role. Agents also get an
// Agent row, OFF with score 0, in the same transaction.
func Register(db *gorm.DB, role string, opts RegisterOpts) (*models.User, error) {
	switch role {
	case models.RoleCustomer, models.RoleAgent, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("directory: unknown role %q", role)
	}
	email := strings.TrimSpace(opts.Email)
	if !ValidEmail(email) {
		return nil, apperr.New(apperr.ErrInvalidEmail, "Email is not valid: %s", opts.Email)
	}

	user := models.User{
		Email:       email,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		PhoneNumber: opts.PhoneNumber,
		Role:        role,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("directory: check email: %w", err)
		}
		if count > 0 {
			return apperr.New(apperr.ErrEmailTaken, "Email is already taken: %s", email)
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("directory: create user: %w", err)
		}
		if role != models.RoleAgent {
			return nil
		}
		agent := models.Agent{UserID: user.ID, Status: models.AgentOff, Score: 0}
		if err := tx.Omit(clause.Associations).Create(&agent).Error; err != nil {
			return fmt.Errorf("directory: create agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RegisterCustomer creates a customer profile.
func RegisterCustomer(db *gorm.DB, opts RegisterOpts) (*models.User, error) {
	return Register(db, models.RoleCustomer, opts)
}

// RegisterAgent creates an agent profile and its availability record.
func RegisterAgent(db *gorm.DB, opts RegisterOpts) (*models.Agent, error) {
	u, err := Register(db, models.RoleAgent, opts)
	if err != nil {
		return nil, err
	}
	return GetAgent(db, u.ID)
}

// GetUser retrieves a user by ID.
func GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrUserNotFound, "User with id: %d doesn't exist.", id)
		}
		return nil, fmt.Errorf("directory: get user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
func GetUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	var u models.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrUserNotFound, "There is no user with this email: %s", email)
		}
		return nil, fmt.Errorf("directory: get user %s: %w", email, err)
	}
	return &u, nil
}

// GetAgent retrieves an agent with its profile.
func GetAgent(db *gorm.DB, id uint) (*models.Agent, error) {
	var a models.Agent
	if err := db.Preload("User").Where("user_id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrAgentNotFound, "Agent with id %d doesn't exist!", id)
		}
		return nil, fmt.Errorf("directory: get agent %d: %w", id, err)
	}
	return &a, nil
}

// LockUser reads a user row with FOR UPDATE inside tx.
func LockUser(tx *gorm.DB, id uint) (*models.User, error) {
	return GetUser(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// LockAgent reads an agent row with FOR UPDATE inside tx.
func LockAgent(tx *gorm.DB, id uint) (*models.Agent, error) {
	var a models.Agent
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrAgentNotFound, "Agent with id %d doesn't exist!", id)
		}
		return nil, fmt.Errorf("directory: lock agent %d: %w", id, err)
	}
	return &a, nil
}

// ListUsers returns users, optionally filtered by role, ordered by ID.
func ListUsers(db *gorm.DB, role string) ([]models.User, error) {
	q := db.Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	return users, nil
}

// ListAgents returns agents with profiles, optionally filtered by status,
// highest score first.
func ListAgents(db *gorm.DB, status string) ([]models.Agent, error) {
	q := db.Preload("User")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var agents []models.Agent
	if err := q.Order("score DESC, user_id ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("directory: list agents: %w", err)
	}
	return agents, nil
}

// FreePool returns the FREE agents, locked FOR UPDATE. The locking read also
// covers the status range, so an agent being set FREE by another transaction
// is either seen here or waits until this transaction commits.
func FreePool(tx *gorm.DB) ([]models.Agent, error) {
	var agents []models.Agent
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ?", models.AgentFree).
		Order("score DESC, user_id ASC").
		Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("directory: free pool: %w", err)
	}
	return agents, nil
}

// SetAgentStatus updates an agent's status. When from is non-empty the update
// only applies if the agent is currently in that status; the result reports
// whether a row changed.
func SetAgentStatus(tx *gorm.DB, id uint, from, to string) (bool, error) {
	q := tx.Model(&models.Agent{}).Where("user_id = ?", id)
	if from != "" {
		q = q.Where("status = ?", from)
	}
	result := q.Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("directory: set agent %d status %s: %w", id, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}
