package models

import "time"

// User roles.
const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

// User is a profile shared by customers, agents and admins. Agent operational
// state lives in Agent, keyed by the user's ID.
type User struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	FirstName   string `gorm:"size:64"`
	LastName    string `gorm:"size:64"`
	Email       string `gorm:"size:255;not null;uniqueIndex"`
	PhoneNumber string `gorm:"size:32"`
	Role        string `gorm:"size:16;not null;index"`
	CreatedAt   time.Time
}
