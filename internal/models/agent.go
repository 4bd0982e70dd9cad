package models

import "time"

// Agent availability states.
const (
	AgentFree = "FREE"
	AgentBusy = "BUSY"
	AgentOff  = "OFF"
)

// Agent is the operational state of a support agent: availability and a
// running quality score. UserID doubles as the agent's identity.
type Agent struct {
	UserID    uint    `gorm:"primaryKey;autoIncrement:false"`
	Status    string  `gorm:"size:8;default:OFF;index"`
	Score     float64 `gorm:"default:0"`
	UpdatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}
