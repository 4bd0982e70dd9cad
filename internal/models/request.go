package models

import "time"

// Request lifecycle states.
const (
	RequestRequested = "REQUESTED"
	RequestAssigned  = "ASSIGNED"
	RequestConfirmed = "CONFIRMED"
	RequestProcessed = "PROCESSED"
)

// Request is one customer's service ticket. AgentID is set iff Status is
// ASSIGNED, CONFIRMED or PROCESSED.
type Request struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CustomerID  uint      `gorm:"not null;index"`
	AgentID     *uint     `gorm:"index"`
	Status      string    `gorm:"size:16;not null;index"`
	Score       float64   `gorm:"default:0"`
	IsScored    bool      `gorm:"default:false"`
	Message     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
	AssignedAt  *time.Time
	ConfirmedAt *time.Time
	FinishedAt  *time.Time

	Customer User   `gorm:"foreignKey:CustomerID"`
	Agent    *Agent `gorm:"foreignKey:AgentID;references:UserID"`
}

// Active reports whether the request currently occupies its agent.
func (r *Request) Active() bool {
	return r.Status == RequestAssigned || r.Status == RequestConfirmed
}
