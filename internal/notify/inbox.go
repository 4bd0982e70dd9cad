// Package notify delivers request lifecycle notifications to users and
// operational alerts to chat channels.
package notify

import (
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Notification subjects.
const (
	SubjectCreated    = "request_created"
	SubjectAssigned   = "request_assigned"
	SubjectConfirmed  = "request_confirmed"
	SubjectProcessed  = "request_processed"
	SubjectDeleted    = "request_deleted"
	SubjectReassigned = "request_reassigned"
	SubjectRequeued   = "request_requeued"
	SubjectNewRequest = "new_assignment"
	SubjectUnassigned = "assignment_expired"
)

// Notifier records a notification for a user. Implementations are called
// inside the transaction that made the state change, so tx must be used for
// any writes.
type Notifier interface {
	Notify(tx *gorm.DB, userID uint, requestID *uint, subject, body string) error
}

// InboxNotifier persists notifications to the notifications table.
type InboxNotifier struct{}

// Notify implements Notifier.
func (InboxNotifier) Notify(tx *gorm.DB, userID uint, requestID *uint, subject, body string) error {
	_, err := Send(tx, userID, requestID, subject, body)
	return err
}

// Send stores a notification in a user's inbox.
func Send(tx *gorm.DB, userID uint, requestID *uint, subject, body string) (*models.Notification, error) {
	if userID == 0 {
		return nil, fmt.Errorf("notify: user is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("notify: subject is required")
	}

	n := models.Notification{
		UserID:    userID,
		RequestID: requestID,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("notify: send: %w", err)
	}
	return &n, nil
}

// Inbox returns a user's unacknowledged notifications, oldest first.
func Inbox(db *gorm.DB, userID uint) ([]models.Notification, error) {
	var out []models.Notification
	if err := db.Where("user_id = ? AND acknowledged = ?", userID, false).
		Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("notify: inbox %d: %w", userID, err)
	}
	return out, nil
}

// Acknowledge marks a notification as read.
func Acknowledge(db *gorm.DB, id uint) error {
	result := db.Model(&models.Notification{}).Where("id = ?", id).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("notify: acknowledge %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "Notification with id: %d doesn't exist.", id)
	}
	return nil
}
