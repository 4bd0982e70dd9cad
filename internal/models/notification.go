package models

import "time"

// Notification is an inbox entry for a customer or agent, written in the same
// transaction as the state change it describes.
type Notification struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       uint   `gorm:"not null;index"`
	RequestID    *uint  `gorm:"index"`
	Subject      string `gorm:"size:64;not null"`
	Body         string `gorm:"type:text"`
	Acknowledged bool   `gorm:"default:false;index"`
	CreatedAt    time.Time
}
